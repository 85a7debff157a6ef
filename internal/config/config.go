package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig holds persistence settings. Driver is "postgres" in
// production; tests use "sqlite" with an in-memory DSN.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

// TradingPairConfig seeds one simulated trading pair.
type TradingPairConfig struct {
	Pair     string  `mapstructure:"pair"`
	Change   float64 `mapstructure:"change"`
	Direction string `mapstructure:"direction"`
	Leverage string  `mapstructure:"leverage"`
	Value    float64 `mapstructure:"value"`
}

// Config is the full application configuration. Wallet addresses and trading
// pairs are injected here at startup instead of living in package globals.
type Config struct {
	LogLevel        string             `mapstructure:"log_level"`
	Server          ServerConfig       `mapstructure:"server"`
	Database        DatabaseConfig     `mapstructure:"database"`
	JWT             JWTConfig          `mapstructure:"jwt"`
	WalletAddresses map[string]string  `mapstructure:"wallet_addresses"`
	TradingPairs    []TradingPairConfig `mapstructure:"trading_pairs"`
}

// LoadConfig reads configuration from an optional YAML file and the
// environment (BITSECURE_ prefix), applying defaults for every key.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("BITSECURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{"./config.yaml", "./configs/config.yaml"}
	}
	for _, path := range paths {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			// Missing files are fine; defaults and env cover everything.
			continue
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=bitsecure password=bitsecure dbname=bitsecure port=5432 sslmode=disable")
	v.SetDefault("jwt.secret", "your-secret-key-here")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("wallet_addresses", map[string]string{
		"BTC":  "bc1qflt3sxs06c6jnj25hj85py5tjjl4gnsraph9ky",
		"ETH":  "0x52665675944E3aa06c8803fB737EB74033fA34DB",
		"USDT": "0x52665675944E3aa06c8803fB737EB74033fA34DB",
		"BNB":  "0x52665675944E3aa06c8803fB737EB74033fA34DB",
		"ADA":  "addr1qy5mhyrah3qe0swefywe0xdkzqte67ydzqjrd6krzjtuweffhwg8m0zpjlqajjgaj7vmvyqhn4ug6ypyxm4vx9yhcajsgwh3xp",
	})
	v.SetDefault("trading_pairs", []map[string]interface{}{
		{"pair": "BTC/USDT", "change": 2.61, "direction": "LONG", "leverage": "20x", "value": 25766.2},
		{"pair": "ETH/USDT", "change": -1.51, "direction": "SHORT", "leverage": "10x", "value": 32751.53},
		{"pair": "BNB/USDT", "change": 5.78, "direction": "LONG", "leverage": "5x", "value": 38132.37},
		{"pair": "ADA/USDT", "change": 1.72, "direction": "SHORT", "leverage": "50x", "value": 32971.98},
	})
}
