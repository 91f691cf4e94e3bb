package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type AuthConfig struct {
	BcryptCost       int `mapstructure:"bcrypt_cost"`
	LoginMaxFailures int `mapstructure:"login_max_failures"`
	LoginWindowSecs  int `mapstructure:"login_window_secs"`
	LoginMaxBackoff  int `mapstructure:"login_max_backoff_secs"`
}

type DiscordConfig struct {
	BotToken            string `mapstructure:"bot_token"`
	GuildID             string `mapstructure:"guild_id"`
	AnnouncementChannel string `mapstructure:"announcement_channel"`
	SyncIntervalSecs    int    `mapstructure:"sync_interval_secs"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.login_max_failures", 5)
	v.SetDefault("auth.login_window_secs", 60)
	v.SetDefault("auth.login_max_backoff_secs", 900)
	v.SetDefault("discord.sync_interval_secs", 60)
	v.SetDefault("logging.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// DISCORD_BOT_TOKEN stays out of the config file in deployments.
	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		config.Discord.BotToken = token
	}

	return &config, nil
}
