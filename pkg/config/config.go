package config

// Package config loads node configuration from an optional .env file, the
// environment, and (via viper's own precedence) flags bound by the CLI,
// with CLI > env/.env > default (spec §6 Configuration).

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ironledger/pkg/utils"
)

// Config is the node's flat runtime configuration (spec §6).
type Config struct {
	APIPort      int    `mapstructure:"api_port"`
	P2PPort      int    `mapstructure:"p2p_port"`
	Difficulty   int    `mapstructure:"difficulty"`
	MiningReward uint64 `mapstructure:"mining_reward"`
	LogLevel     string `mapstructure:"log_level"`
}

// AppConfig holds the most recently loaded configuration.
var AppConfig Config

// Load reads an optional .env file, applies defaults, and binds the
// matching environment variables, then unmarshals into AppConfig. Callers
// that expose CLI flags should viper.BindPFlag each flag before calling
// Load so flags take precedence over the environment (viper's own
// precedence order already puts bound flags above env and defaults).
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.SetDefault("api_port", 8080)
	viper.SetDefault("p2p_port", 0)
	viper.SetDefault("difficulty", 2)
	viper.SetDefault("mining_reward", 50)
	viper.SetDefault("log_level", "info")

	viper.AutomaticEnv()
	_ = viper.BindEnv("api_port", "API_PORT")
	_ = viper.BindEnv("p2p_port", "P2P_PORT")
	_ = viper.BindEnv("difficulty", "DIFFICULTY")
	_ = viper.BindEnv("mining_reward", "MINING_REWARD")
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	AppConfig = *cfg
	return cfg, nil
}

// bootstrapFile is the on-disk shape of a peers file: a flat list of libp2p
// bootstrap multiaddrs, the same "read a YAML file of peers" idiom the
// teacher's devnet/testnet CLI uses for its own multi-node config.
type bootstrapFile struct {
	Peers []string `yaml:"peers"`
}

// LoadPeersFile reads a YAML file listing bootstrap peer multiaddrs under a
// top-level "peers:" key (spec §4.7 bootstrap peers).
func LoadPeersFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.Wrap(err, "read peers file")
	}
	var f bootstrapFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, utils.Wrap(err, "parse peers file")
	}
	return f.Peers, nil
}
