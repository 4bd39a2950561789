// Package config loads configuration with viper from a YAML file, an
// optional .env file (godotenv) and the process environment.
//
// # Usage
//
//	var cfg Config
//	err := config.LoadConfig("falctl", &cfg,
//	    config.WithEnvPrefix("FALCTL"),
//	    config.WithEnvAlias("fal.key", "FAL_KEY"),
//	)
//
// Every leaf key is bound to PREFIX_KEY_PATH, e.g. fal.run_url to
// FALCTL_FAL_RUN_URL. Aliases add further env names for one key.
package config
