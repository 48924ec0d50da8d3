// Package config loads settings from file, .env and environment variables.
package config

import (
	"os"
	"path/filepath"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/joho/godotenv"

	"github.com/Laisky/fingenius-compliance/library/log"
)

// envOverrides maps environment variables onto configuration keys.
var envOverrides = map[string]string{
	"MONGO_URI":        "settings.db.mongo.uri",
	"MONGO_DB":         "settings.db.mongo.db",
	"JWT_SECRET":       "settings.secret",
	"ASSET_DRIVER":     "settings.assets.driver",
	"ASSET_ENDPOINT":   "settings.assets.endpoint",
	"ASSET_BUCKET":     "settings.assets.bucket",
	"ASSET_ACCESS_KEY": "settings.assets.access_key",
	"ASSET_SECRET_KEY": "settings.assets.secret_key",
	"ASSET_REGION":     "settings.assets.region",
	"ASSET_PUBLIC_URL": "settings.assets.public_url",
	"STAGING_DIR":      "settings.upload.staging_dir",
}

// LoadFromFile loads the yaml configuration, an empty path is skipped.
func LoadFromFile(cfgPath string) {
	if cfgPath == "" {
		return
	}

	if _, err := os.Stat(cfgPath); err != nil {
		log.Logger.Warn("configuration file not found, use environment only",
			zap.String("config", cfgPath), zap.Error(err))
		return
	}

	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// LoadEnv reads .env (when present) and applies environment overrides.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Logger.Debug("no .env file found, using environment variables")
	}

	applyEnv(os.LookupEnv, gconfig.Shared.Set)
}

func applyEnv(lookup func(string) (string, bool), set func(string, any)) {
	for env, key := range envOverrides {
		if val, ok := lookup(env); ok && val != "" {
			set(key, val)
		}
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		set("listen", ":"+port)
	}
}
