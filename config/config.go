// Package config merges the server settings from flags, BLASE_ environment
// variables, an optional config file and defaults, and decodes the options
// sent by the client.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blase-lsp/blase/i18n"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "BLASE"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Verbosity        int           `mapstructure:"verbosity" validate:"gte=0,lte=5"`
	LogFile          string        `mapstructure:"log-file"`
	WebSocket        int           `mapstructure:"web-socket" validate:"gte=0,lte=65535"`
	MetricsAddr      string        `mapstructure:"metrics-addr" validate:"omitempty,hostname_port"`
	ParserPoolSize   int           `mapstructure:"parser-pool-size" validate:"gte=1,lte=64"`
	DiagnosticsDelay time.Duration `mapstructure:"diagnostics-delay" validate:"gte=0"`
	ViewPaths        []string      `mapstructure:"view-paths" validate:"dive,required"`
	LoadWorkspace    bool          `mapstructure:"load-workspace"`
	Watch            bool          `mapstructure:"watch"`
	StrictOpen       bool          `mapstructure:"strict-open"`
	Locale           string        `mapstructure:"locale" validate:"locale"`
}

func Default() Config {
	return Config{
		Verbosity:        1,
		ParserPoolSize:   4,
		DiagnosticsDelay: 200 * time.Millisecond,
		ViewPaths:        []string{"resources/views", "app/Views"},
		LoadWorkspace:    true,
		Locale:           i18n.DefaultLocale,
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
		return i18n.Supported(fl.Field().String())
	})
}

func (c *Config) Validate() error {
	err := validate.Struct(c)

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

// Flags registers the settings on fs with their default values.
func Flags(fs *pflag.FlagSet) {
	def := Default()

	fs.String("config", "", "Config file (yaml, toml or json)")
	fs.CountP("verbosity", "v", "Log verbosity, repeat for more")
	fs.String("log-file", def.LogFile, "Log to file instead of stderr")
	fs.Int("web-socket", def.WebSocket, "Start websocket server on port")
	fs.String("metrics-addr", def.MetricsAddr, "Serve prometheus metrics on host:port")
	fs.Int("parser-pool-size", def.ParserPoolSize, "Parsers per language")
	fs.Duration("diagnostics-delay", def.DiagnosticsDelay, "Debounce diagnostics publication, 0 to publish at once")
	fs.StringSlice("view-paths", def.ViewPaths, "Template directories relative to the workspace root")
	fs.Bool("load-workspace", def.LoadWorkspace, "Load view files in the background after initialization")
	fs.Bool("watch", def.Watch, "Follow view file changes on disk")
	fs.Bool("strict-open", def.StrictOpen, "Reject didOpen of an already open document")
	fs.String("locale", def.Locale, "Language of diagnostic messages")
}

// Load reads the settings by precedence: flags set on the command line,
// environment, config file, defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()

	v.SetDefault("verbosity", def.Verbosity)
	v.SetDefault("log-file", def.LogFile)
	v.SetDefault("web-socket", def.WebSocket)
	v.SetDefault("metrics-addr", def.MetricsAddr)
	v.SetDefault("parser-pool-size", def.ParserPoolSize)
	v.SetDefault("diagnostics-delay", def.DiagnosticsDelay)
	v.SetDefault("view-paths", def.ViewPaths)
	v.SetDefault("load-workspace", def.LoadWorkspace)
	v.SetDefault("watch", def.Watch)
	v.SetDefault("strict-open", def.StrictOpen)
	v.SetDefault("locale", def.Locale)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		// only flags changed on the command line take precedence
		fs.VisitAll(func(flag *pflag.Flag) {
			if flag.Changed && flag.Name != "config" {
				_ = v.BindPFlag(flag.Name, flag)
			}
		})

		if file, err := fs.GetString("config"); err == nil && file != "" {
			v.SetConfigFile(file)

			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", file, err)
			}
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
