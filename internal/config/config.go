// Package config loads the settings of sitehost from flags, environment and
// an optional config file through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "SITEHOST"

const (
	RunnerExec   = "exec"
	RunnerDocker = "docker"
)

type Config struct {
	Port      int             `mapstructure:"port"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AWS       AWSConfig       `mapstructure:"aws"`
	CDN       CDNConfig       `mapstructure:"cdn"`
	Build     BuildConfig     `mapstructure:"build"`
	Deploy    DeployConfig    `mapstructure:"deploy"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

type TemplatesConfig struct {
	// Root holds sources/{type}/{slug} and builds/{subdomain}.
	Root string `mapstructure:"root"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type CDNConfig struct {
	Domain string `mapstructure:"domain"`
}

type BuildConfig struct {
	InstallCommand string        `mapstructure:"install_command"`
	Command        string        `mapstructure:"command"`
	Runner         string        `mapstructure:"runner"`
	Image          string        `mapstructure:"image"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type DeployConfig struct {
	Concurrency    int  `mapstructure:"concurrency"`
	CheckCollision bool `mapstructure:"check_collision"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var defaults = map[string]any{
	"port":                   8080,
	"templates.root":         "./templates",
	"database.url":           "sitehost.db",
	"aws.region":             "eu-west-1",
	"aws.bucket":             "",
	"aws.endpoint":           "",
	"aws.path_style":         false,
	"aws.access_key_id":      "",
	"aws.secret_access_key":  "",
	"cdn.domain":             "",
	"build.install_command":  "npm install",
	"build.command":          "npm run build",
	"build.runner":           RunnerExec,
	"build.image":            "node:20-alpine",
	"build.timeout":          time.Duration(0),
	"deploy.concurrency":     1,
	"deploy.check_collision": false,
	"redis.addr":             "",
	"redis.password":         "",
	"redis.db":               0,
}

// Environment names the storefront already uses for the same settings.
var legacyEnv = map[string]string{
	"aws.region":            "AWS_REGION",
	"aws.bucket":            "AWS_S3_BUCKET",
	"aws.access_key_id":     "AWS_ACCESS_KEY_ID",
	"aws.secret_access_key": "AWS_SECRET_ACCESS_KEY",
	"cdn.domain":            "CLOUDFRONT_DOMAIN",
	"database.url":          "DATABASE_URL",
}

// Setup registers defaults and environment bindings on v. Every key has a
// default so that Unmarshal sees environment overrides.
func Setup(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
}

// Load reads the config file (when one is set on v) and decodes the result.
func Load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Build.Runner != RunnerExec && c.Build.Runner != RunnerDocker {
		errs = append(errs, fmt.Errorf("build.runner must be %q or %q, got %q", RunnerExec, RunnerDocker, c.Build.Runner))
	}
	if c.Deploy.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("deploy.concurrency must be at least 1, got %d", c.Deploy.Concurrency))
	}
	if c.Build.Timeout < 0 {
		errs = append(errs, errors.New("build.timeout must not be negative"))
	}
	if c.Templates.Root == "" {
		errs = append(errs, errors.New("templates.root must be set"))
	}
	return errors.Join(errs...)
}
