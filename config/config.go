package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	JWT struct {
		SecretKey        string `mapstructure:"secret_key"`
		AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
		RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
	} `mapstructure:"jwt"`
	Session struct {
		CookieName         string `mapstructure:"cookie_name"`
		IdleTimeoutMinutes int    `mapstructure:"idle_timeout_minutes"`
	} `mapstructure:"session"`
}

var AppConfig Config

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetDefault("jwt.access_ttl_minutes", 15)
	viper.SetDefault("jwt.refresh_ttl_days", 7)
	viper.SetDefault("session.cookie_name", "session_id")
	viper.SetDefault("session.idle_timeout_minutes", 30)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}
