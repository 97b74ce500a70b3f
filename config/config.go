package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Feeds      FeedsConfig      `mapstructure:"feeds"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// FeedsConfig names the external data sources polled every tick. Sources
// maps a feed name to its endpoint path relative to BaseURL.
type FeedsConfig struct {
	BaseURL string            `mapstructure:"base_url"`
	APIKey  string            `mapstructure:"api_key"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Sources map[string]string `mapstructure:"sources"`
}

type StreamConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	BackoffInterval time.Duration `mapstructure:"backoff_interval"`
}

type SimulationConfig struct {
	ShotChance float64 `mapstructure:"shot_chance"`
	HomeTeamID string  `mapstructure:"home_team_id"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}
	err = config.validate()
	return
}

func setDefaults() {
	viper.SetDefault("server.http_address", ":8000")
	viper.SetDefault("server.rpc_address", ":8001")
	viper.SetDefault("server.metrics_address", ":9090")
	viper.SetDefault("feeds.timeout", 5*time.Second)
	viper.SetDefault("feeds.sources", map[string]string{
		"play_by_play":    "/playbyplayv2",
		"shot_chart":      "/shotchartdetail",
		"player_tracking": "/boxscoreplayertrackv2",
	})
	viper.SetDefault("stream.tick_interval", time.Second)
	viper.SetDefault("stream.backoff_interval", 5*time.Second)
	viper.SetDefault("simulation.shot_chance", 0.3)
	viper.SetDefault("simulation.home_team_id", "home")
}

func (c *Config) validate() error {
	if c.Stream.TickInterval <= 0 {
		return fmt.Errorf("stream.tick_interval must be positive, got %v", c.Stream.TickInterval)
	}
	if c.Stream.BackoffInterval < c.Stream.TickInterval {
		return fmt.Errorf("stream.backoff_interval must be >= tick_interval")
	}
	if c.Simulation.ShotChance < 0 || c.Simulation.ShotChance > 1 {
		return fmt.Errorf("simulation.shot_chance must be in [0, 1], got %v", c.Simulation.ShotChance)
	}
	if len(c.Feeds.Sources) == 0 {
		return fmt.Errorf("feeds.sources must not be empty")
	}
	return nil
}
