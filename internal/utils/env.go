package utils

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// LoadEnv reads .env files into the process environment. Variables that are
// already set win over the file.
func LoadEnv(logger *zap.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logger.Warn("ENV file not found or failed to load, using environment")
	} else {
		logger.Info("ENV file loaded successfully")
	}
}
