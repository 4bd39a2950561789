package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/falclient/logger"
)

type falSection struct {
	Key     string        `yaml:"key" mapstructure:"key"`
	RunURL  string        `yaml:"run_url" mapstructure:"run_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	TLS     *tlsSection   `yaml:"tls" mapstructure:"tls"`
}

type tlsSection struct {
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Fal           falSection `yaml:"fal" mapstructure:"fal"`
	Skipped       string     `mapstructure:"-"`
}

type mockFS struct {
	files map[string]bool
	env   map[string]string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	for k, v := range m.env {
		if _, ok := os.LookupEnv(k); !ok {
			os.Setenv(k, v)
		}
	}
	return nil
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "falctl"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" {
		t.Errorf("expected 'development', got %q", cfg.Environment)
	}
	if cfg.Observability.ServiceName != "falctl" {
		t.Errorf("expected observability service name to follow Name, got %q", cfg.Observability.ServiceName)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults, got level %q", cfg.Logging.Level)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "falctl"}, ""},
		{"missing name", ServiceConfig{}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "falctl", Environment: "qa"}, "config.environment must be one of"},
		{"invalid logging", ServiceConfig{Name: "falctl", Logging: logger.Config{Level: "loud"}}, "config.logging"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	keys := Keys(&testConfig{})
	want := map[string]bool{
		"name":                   true,
		"environment":            true,
		"logging.level":          true,
		"observability.endpoint": true,
		"observability.interval": true,
		"fal.key":                true,
		"fal.run_url":            true,
		"fal.timeout":            true,
		"fal.tls.ca_file":        true,
	}
	got := map[string]bool{}
	for _, k := range keys {
		got[k] = true
	}
	for k := range want {
		if !got[k] {
			t.Errorf("expected key %q in %v", k, keys)
		}
	}
	if got["skipped"] || got["service_config"] {
		t.Errorf("unexpected keys in %v", keys)
	}
	if Keys("not a struct") != nil {
		t.Error("expected nil keys for non-struct")
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "falctl.yml")

	yamlContent := `
name: falctl
environment: staging
fal:
  run_url: https://example.test
  timeout: 5s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg := testConfig{Fal: falSection{Key: "default-key"}}
	if err := LoadConfig("falctl", &cfg, WithConfigFile(configPath), WithEnvPrefix("FALTEST")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Fal.RunURL != "https://example.test" {
		t.Errorf("expected run_url from file, got %q", cfg.Fal.RunURL)
	}
	if cfg.Fal.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Fal.Timeout)
	}
	if cfg.Fal.Key != "default-key" {
		t.Errorf("expected preset value to survive, got %q", cfg.Fal.Key)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "falctl.yml")
	if err := os.WriteFile(configPath, []byte("fal:\n  run_url: https://file.test\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FALTEST_FAL_RUN_URL", "https://env.test")
	t.Setenv("FAL_KEY_FOR_TEST", "id:secret")
	t.Setenv("FALTEST_FAL_TLS_CA_FILE", "/etc/ca.pem")

	var cfg testConfig
	err := LoadConfig("falctl", &cfg,
		WithConfigFile(configPath),
		WithEnvPrefix("faltest"),
		WithEnvAlias("fal.key", "FAL_KEY_FOR_TEST"),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Fal.RunURL != "https://env.test" {
		t.Errorf("expected env to override file, got %q", cfg.Fal.RunURL)
	}
	if cfg.Fal.Key != "id:secret" {
		t.Errorf("expected alias to populate fal.key, got %q", cfg.Fal.Key)
	}
	if cfg.Fal.TLS == nil || cfg.Fal.TLS.CAFile != "/etc/ca.pem" {
		t.Errorf("expected nested pointer section from env, got %+v", cfg.Fal.TLS)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	os.Unsetenv("FALTEST2_NAME")
	defer os.Unsetenv("FALTEST2_NAME")

	fs := &mockFS{
		files: map[string]bool{".env": true},
		env:   map[string]string{"FALTEST2_NAME": "from-dotenv"},
	}
	var cfg testConfig
	if err := LoadConfig("falctl", &cfg, WithFileSystem(fs), WithEnvPrefix("FALTEST2")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"), WithFileSystem(&mockFS{}))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	if err := os.WriteFile(path, []byte("fal: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	var cfg testConfig
	if err := LoadConfig("falctl", &cfg, WithConfigFile(path)); err == nil {
		t.Error("expected error for unparsable config file")
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config.yml": true,
		".env.falctl":  true,
		".env":         true,
	}}
	files := (&Resolver{FileSystem: fs}).ResolveFiles("falctl", LoaderConfig{})
	if files.ConfigFile != "./config.yml" {
		t.Errorf("expected ./config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env.falctl" {
		t.Errorf("expected service env file to win, got %q", files.EnvFile)
	}

	explicit := (&Resolver{FileSystem: fs}).ResolveFiles("falctl", LoaderConfig{ConfigFile: "/x.yml"})
	if explicit.ConfigFile != "/x.yml" {
		t.Errorf("expected explicit path to win, got %q", explicit.ConfigFile)
	}
}

func TestEnvName(t *testing.T) {
	if got := envName("FALCTL", "fal.run_url"); got != "FALCTL_FAL_RUN_URL" {
		t.Errorf("unexpected env name %q", got)
	}
	if got := envName("", "proxy.listen"); got != "PROXY_LISTEN" {
		t.Errorf("unexpected env name %q", got)
	}
}
