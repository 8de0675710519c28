package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Punctuation PunctuationConfig `mapstructure:"punctuation"`
	Separator   SeparatorConfig   `mapstructure:"separator"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Server      ServerConfig      `mapstructure:"server"`
	LogLevel    string            `mapstructure:"log_level"`
}

type PunctuationConfig struct {
	// Marks is "default", a list of mark characters, or "re:" followed by a
	// regular expression.
	Marks     string `mapstructure:"marks"`
	Preserve  bool   `mapstructure:"preserve"`
	Strip     bool   `mapstructure:"strip"`
	Leniency  string `mapstructure:"leniency"`
	Normalize string `mapstructure:"normalize"`
}

type SeparatorConfig struct {
	Phone    string `mapstructure:"phone"`
	Syllable string `mapstructure:"syllable"`
	Word     string `mapstructure:"word"`
}

type BackendConfig struct {
	Kind        string   `mapstructure:"kind"`
	Command     string   `mapstructure:"command"`
	Args        []string `mapstructure:"args"`
	Concurrency int      `mapstructure:"concurrency"` // 0 derives from GOMAXPROCS
	Timeout     int      `mapstructure:"timeout"`     // seconds per backend call, 0 disables
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	// EnvFile is a dotenv file to load before reading the environment. When
	// empty, ./.env is loaded if present.
	EnvFile  string
	Defaults Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// binding ties a config key to its command line flag.
type binding struct {
	key  string
	flag string
}

var bindings = []binding{
	{"punctuation.marks", "marks"},
	{"punctuation.preserve", "preserve-punctuation"},
	{"punctuation.strip", "strip"},
	{"punctuation.leniency", "leniency"},
	{"punctuation.normalize", "normalize"},
	{"separator.phone", "separator-phone"},
	{"separator.syllable", "separator-syllable"},
	{"separator.word", "separator-word"},
	{"backend.kind", "backend"},
	{"backend.command", "backend-command"},
	{"backend.args", "backend-arg"},
	{"backend.concurrency", "backend-concurrency"},
	{"backend.timeout", "backend-timeout"},
	{"server.listen_addr", "server-listen-addr"},
	{"server.workers", "workers"},
	{"server.max_text_bytes", "server-max-text-bytes"},
	{"server.request_timeout", "server-request-timeout"},
	{"server.shutdown_timeout", "server-shutdown-timeout"},
	{"log_level", "log-level"},
}

func DefaultConfig() Config {
	return Config{
		Punctuation: PunctuationConfig{
			Marks:     "default",
			Preserve:  true,
			Strip:     true,
			Leniency:  "whitespace",
			Normalize: "none",
		},
		Separator: SeparatorConfig{
			Phone:    "",
			Syllable: "",
			Word:     " ",
		},
		Backend: BackendConfig{
			Kind:        BackendIdentity,
			Command:     "",
			Args:        nil,
			Concurrency: 0,
			Timeout:     60,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxTextBytes:    1 << 20,
			RequestTimeout:  60,
			ShutdownTimeout: 30,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("marks", defaults.Punctuation.Marks, `Punctuation marks: "default", a list of characters, or "re:<pattern>"`)
	fs.Bool("preserve-punctuation", defaults.Punctuation.Preserve, "Restore punctuation after phonemization instead of removing it")
	fs.Bool("strip", defaults.Punctuation.Strip, "Drop the trailing word separator of each unit")
	fs.String("leniency", defaults.Punctuation.Leniency, "What to trim around placeholders in backend output (whitespace|separator)")
	fs.String("normalize", defaults.Punctuation.Normalize, "Unicode normalization of input units (none|nfc|nfd|nfkc|nfkd)")
	fs.String("separator-phone", defaults.Separator.Phone, "Phone separator used by the backend")
	fs.String("separator-syllable", defaults.Separator.Syllable, "Syllable separator used by the backend")
	fs.String("separator-word", defaults.Separator.Word, "Word separator used by the backend")
	fs.String("backend", defaults.Backend.Kind, "Phonemization backend (identity|command)")
	fs.String("backend-command", defaults.Backend.Command, "Executable for the command backend")
	fs.StringSlice("backend-arg", defaults.Backend.Args, "Argument passed to the backend command (repeatable)")
	fs.Int("backend-concurrency", defaults.Backend.Concurrency, "Concurrent backend calls (0 derives from GOMAXPROCS)")
	fs.Int("backend-timeout", defaults.Backend.Timeout, "Backend call timeout in seconds (0 disables)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent pipeline runs in the HTTP server")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Maximum request text size in bytes")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("PHONEPUNCT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("phonepunct")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		// Best effort: a missing ./.env is not an error.
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// bindFlags binds every registered flag to its nested key. Flags missing
// from fs are skipped so subcommands can register a subset.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, b := range bindings {
		f := fs.Lookup(b.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", b.flag, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("punctuation.marks", c.Punctuation.Marks)
	v.SetDefault("punctuation.preserve", c.Punctuation.Preserve)
	v.SetDefault("punctuation.strip", c.Punctuation.Strip)
	v.SetDefault("punctuation.leniency", c.Punctuation.Leniency)
	v.SetDefault("punctuation.normalize", c.Punctuation.Normalize)
	v.SetDefault("separator.phone", c.Separator.Phone)
	v.SetDefault("separator.syllable", c.Separator.Syllable)
	v.SetDefault("separator.word", c.Separator.Word)
	v.SetDefault("backend.kind", c.Backend.Kind)
	v.SetDefault("backend.command", c.Backend.Command)
	v.SetDefault("backend.args", c.Backend.Args)
	v.SetDefault("backend.concurrency", c.Backend.Concurrency)
	v.SetDefault("backend.timeout", c.Backend.Timeout)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("log_level", c.LogLevel)
}
