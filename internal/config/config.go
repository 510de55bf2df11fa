package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Server   ServerConfig `mapstructure:"server"`
	Cache    CacheConfig  `mapstructure:"cache"`
	Vocab    VocabConfig  `mapstructure:"vocab"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type CacheConfig struct {
	Size int `mapstructure:"size"`
}

type VocabConfig struct {
	Origin           string `mapstructure:"origin"`
	AuthToken        string `mapstructure:"auth_token"`
	MaxArtifactBytes int64  `mapstructure:"max_artifact_bytes"`
	RetryMax         int    `mapstructure:"retry_max"`
	FetchTimeout     int    `mapstructure:"fetch_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxTextBytes:    1 << 20,
			RequestTimeout:  30,
			ShutdownTimeout: 30,
		},
		Cache: CacheConfig{
			Size: 128,
		},
		Vocab: VocabConfig{
			Origin:           "https://huggingface.co",
			AuthToken:        "",
			MaxArtifactBytes: 64 << 20,
			RetryMax:         3,
			FetchTimeout:     60,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent tokenize requests")
	fs.Int("max-text-bytes", defaults.Server.MaxTextBytes, "Maximum request text size in bytes")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request tokenize deadline in seconds")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.Int("cache-size", defaults.Cache.Size, "Maximum cached tokenizer instances")
	fs.String("vocab-origin", defaults.Vocab.Origin, "Vocabulary artifact host origin")
	fs.String("hf-token", defaults.Vocab.AuthToken, "Bearer token for the vocabulary host (env TOKENLENS_HF_TOKEN or HF_TOKEN)")
	fs.Int64("vocab-max-artifact-bytes", defaults.Vocab.MaxArtifactBytes, "Maximum tokenizer.json size in bytes")
	fs.Int("vocab-retry-max", defaults.Vocab.RetryMax, "Retry attempts for vocabulary downloads")
	fs.Int("vocab-fetch-timeout", defaults.Vocab.FetchTimeout, "Per-download timeout in seconds")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("TOKENLENS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	// Bound on the flag key: the vocab.auth_token alias resolves lookups to
	// hf-token, so bindings on the dotted name are never consulted.
	if err := v.BindEnv("hf-token", "TOKENLENS_HF_TOKEN", "HF_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind token env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("tokenlens")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
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

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("cache.size", c.Cache.Size)
	v.SetDefault("vocab.origin", c.Vocab.Origin)
	v.SetDefault("vocab.auth_token", c.Vocab.AuthToken)
	v.SetDefault("vocab.max_artifact_bytes", c.Vocab.MaxArtifactBytes)
	v.SetDefault("vocab.retry_max", c.Vocab.RetryMax)
	v.SetDefault("vocab.fetch_timeout", c.Vocab.FetchTimeout)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.workers", "workers")
	v.RegisterAlias("server.max_text_bytes", "max-text-bytes")
	v.RegisterAlias("server.request_timeout", "request-timeout")
	v.RegisterAlias("server.shutdown_timeout", "shutdown-timeout")
	v.RegisterAlias("cache.size", "cache-size")
	v.RegisterAlias("vocab.origin", "vocab-origin")
	v.RegisterAlias("vocab.auth_token", "hf-token")
	v.RegisterAlias("vocab.max_artifact_bytes", "vocab-max-artifact-bytes")
	v.RegisterAlias("vocab.retry_max", "vocab-retry-max")
	v.RegisterAlias("vocab.fetch_timeout", "vocab-fetch-timeout")
}
