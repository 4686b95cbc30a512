package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Common holds settings shared by every subcommand.
type Common struct {
	RPCURL       string
	Protocols    []string
	Out          string
	Store        string
	StorePath    string
	PGDSN        string
	TraceCalls   bool
	TieBreak     string
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
	CacheSize    int
	LogLevel     string
}

// ScanConfig holds configuration for the scan command.
type ScanConfig struct {
	Common
	FromBlock uint64
	ToBlock   uint64
	BatchSize uint64
}

// DetectConfig holds configuration for the detect command.
type DetectConfig struct {
	Common
	TxHashes []string
}

// LoadScan merges config file, environment variables, and flags into ScanConfig.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("batch-size", uint64(2000))
	})
	if err != nil {
		return ScanConfig{}, err
	}

	cfg := ScanConfig{
		Common:    loadCommon(v),
		FromBlock: v.GetUint64("from"),
		ToBlock:   v.GetUint64("to"),
		BatchSize: v.GetUint64("batch-size"),
	}
	if cfg.RPCURL == "" {
		return ScanConfig{}, fmt.Errorf("rpc is required")
	}
	if cfg.ToBlock != 0 && cfg.FromBlock > cfg.ToBlock {
		return ScanConfig{}, fmt.Errorf("from %d is after to %d", cfg.FromBlock, cfg.ToBlock)
	}
	return cfg, nil
}

// LoadDetect merges config file, environment variables, and flags into DetectConfig.
func LoadDetect(cfgFile string, flags *pflag.FlagSet) (DetectConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return DetectConfig{}, err
	}

	cfg := DetectConfig{
		Common:   loadCommon(v),
		TxHashes: getStringSlice(v, "tx"),
	}
	if cfg.RPCURL == "" {
		return DetectConfig{}, fmt.Errorf("rpc is required")
	}
	if len(cfg.TxHashes) == 0 {
		return DetectConfig{}, fmt.Errorf("tx is required")
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("FLASHLOAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "./data/flashloans.jsonl")
	v.SetDefault("store", "file")
	v.SetDefault("store-path", "./data/store")
	v.SetDefault("trace-calls", true)
	v.SetDefault("swap-tie-break", "last")
	v.SetDefault("concurrency", 8)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("cache-size", 4096)
	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) Common {
	return Common{
		RPCURL:       v.GetString("rpc"),
		Protocols:    getStringSlice(v, "protocols"),
		Out:          v.GetString("out"),
		Store:        v.GetString("store"),
		StorePath:    v.GetString("store-path"),
		PGDSN:        v.GetString("pg-dsn"),
		TraceCalls:   v.GetBool("trace-calls"),
		TieBreak:     v.GetString("swap-tie-break"),
		Concurrency:  v.GetInt("concurrency"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		CacheSize:    v.GetInt("cache-size"),
		LogLevel:     v.GetString("log-level"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
