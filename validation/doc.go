// Package validation checks configuration structs with go-playground
// validator tags and reports failures by their config key.
//
//	type Config struct {
//	    RunURL string `mapstructure:"run_url" validate:"required,url"`
//	}
//
//	if err := validation.Validate(cfg); err != nil {
//	    var verr *validation.Error
//	    errors.As(err, &verr)
//	}
package validation
