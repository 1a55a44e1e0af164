// Package config loads the kpipe CLI configuration.
//
// Values are resolved with the following precedence (highest first):
//  1. command line flags
//  2. environment variables (KPIPE_ prefix, dashes become underscores)
//  3. the config file (.kpipe.yaml in the working directory or ~/.config/kpipe)
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lburgazzoli/kpipe/pkg/params"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatConsole = "console"
	LogFormatJSON    = "json"

	envPrefix = "KPIPE"
	fileName  = ".kpipe"
)

// Config is the resolved CLI configuration.
type Config struct {
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	// Root is the workshop directory holding charts/ and clusters/.
	Root string `mapstructure:"root"`

	// Clusters is the number of clusters gen renders for.
	Clusters uint16 `mapstructure:"clusters"`

	// Cluster is the cluster the kube and values commands run for.
	Cluster uint16 `mapstructure:"cluster"`

	Domain   string `mapstructure:"domain"`
	GitRepo  string `mapstructure:"git-repo"`
	Provider string `mapstructure:"provider"`

	DryRun bool `mapstructure:"dry-run"`

	LetsEncryptEmail string `mapstructure:"letsencrypt-email"`
	TutorialsRepo    string `mapstructure:"tutorials-repo"`
	TutorialsDir     string `mapstructure:"tutorials-dir"`

	// ClusterUsername and ClusterPassword protect the workshop clusters with
	// basic auth. The password is meant to come from the environment.
	ClusterUsername string `mapstructure:"cluster-username"`
	ClusterPassword string `mapstructure:"cluster-password"`

	DNSProviderServiceAccount string `mapstructure:"dns-provider-serviceaccount"`

	// ConfigFile is the config file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	p := params.Defaults()

	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatConsole,
		Root:      ".",
		Clusters:  1,
		Cluster:   uint16(p.ClusterNumber),
		Domain:    p.Domain,
		GitRepo:   p.GitRepo,
		Provider:  p.Provider,

		ClusterUsername: params.DefaultClusterUsername,
	}
}

// Validate checks the logging settings.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: must be one of console, json", c.LogFormat)
	}

	return nil
}

// Parameters returns the workshop parameters for cluster n.
func (c *Config) Parameters(n params.ClusterNumber) params.Parameters {
	return params.Parameters{
		ClusterNumber: n,
		Domain:        c.Domain,
		GitRepo:       c.GitRepo,
		Provider:      c.Provider,
	}
}

// Generator returns the settings gen exposes to charts.
func (c *Config) Generator() params.Generator {
	return params.Generator{
		LetsEncryptEmail:          c.LetsEncryptEmail,
		TutorialsRepo:             c.TutorialsRepo,
		TutorialsDir:              c.TutorialsDir,
		ClusterUsername:           c.ClusterUsername,
		ClusterPassword:           c.ClusterPassword,
		DNSProviderServiceAccount: c.DNSProviderServiceAccount,
	}
}

// Load resolves the configuration for cmd. A fresh viper instance is used
// on every call.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("root", d.Root)
	v.SetDefault("clusters", d.Clusters)
	v.SetDefault("cluster", d.Cluster)
	v.SetDefault("domain", d.Domain)
	v.SetDefault("git-repo", d.GitRepo)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("dry-run", d.DryRun)
	v.SetDefault("letsencrypt-email", d.LetsEncryptEmail)
	v.SetDefault("tutorials-repo", d.TutorialsRepo)
	v.SetDefault("tutorials-dir", d.TutorialsDir)
	v.SetDefault("cluster-username", d.ClusterUsername)
	v.SetDefault("cluster-password", d.ClusterPassword)
	v.SetDefault("dns-provider-serviceaccount", d.DNSProviderServiceAccount)
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "kpipe"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("unable to parse config file: %w", err)
	}

	return nil
}

// bindFlags binds the flags of cmd and the persistent flags of its parents.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("unable to bind flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("unable to bind persistent flags: %w", err)
		}
	}

	return nil
}

type contextKey struct{}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the configuration attached to ctx, or Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
