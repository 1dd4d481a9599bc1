package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken            string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath              string `envconfig:"DB_PATH" default:"./data/feeding.db"`
	AdminUserID         int64  `envconfig:"ADMIN_USER_ID" default:"0"`
	LogLevel            string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr            string `envconfig:"HTTP_ADDR" default:":8080"`
	ServerTimezone      string `envconfig:"SERVER_TIMEZONE" default:""` // e.g. GMT+1, overrides detection
	DisableInternetTime bool   `envconfig:"DISABLE_INTERNET_TIME" default:"false"`
}

// Load reads environment variables into Config. A .env file in the working
// directory is loaded first, if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
