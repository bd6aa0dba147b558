package utils

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads <path>/.env into the process environment and into viper.
// A missing file is not an error; real environment variables always win.
func LoadConfig(path string) {
	envFile := filepath.Join(path, ".env")
	if err := godotenv.Load(envFile); err != nil {
		logrus.Debugf("[CONFIG] no %s file loaded: %v", envFile, err)
	}

	viper.SetConfigFile(envFile)
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		logrus.Debugf("[CONFIG] viper skipped %s: %v", envFile, err)
	}
}
