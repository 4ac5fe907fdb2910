package app

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
	"github.com/oncotrace/oncotrace-backend/internal/utils"
)

type Config struct {
	Port            string
	Environment     string
	Version         string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	MetricsAddr     string
}

// fileConfig is the YAML overlay shape; any field left empty keeps the
// environment-derived value.
type fileConfig struct {
	Port            string `yaml:"port"`
	Environment     string `yaml:"environment"`
	Version         string `yaml:"version"`
	JWTSecretKey    string `yaml:"jwt_secret_key"`
	AccessTokenTTL  int    `yaml:"access_token_ttl_seconds"`
	RefreshTokenTTL int    `yaml:"refresh_token_ttl_seconds"`
	MetricsAddr     string `yaml:"metrics_addr"`
}

// LoadConfig reads the environment, then overlays the YAML file named by
// ONCOTRACE_CONFIG when set.
func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:            utils.GetEnv("PORT", "8080", log),
		Environment:     utils.GetEnv("ENVIRONMENT", "development", log),
		Version:         utils.GetEnv("SERVICE_VERSION", "dev", log),
		JWTSecretKey:    utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:  time.Duration(utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)) * time.Second,
		RefreshTokenTTL: time.Duration(utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)) * time.Second,
		MetricsAddr:     utils.GetEnv("METRICS_ADDR", "", log),
	}

	path := strings.TrimSpace(os.Getenv("ONCOTRACE_CONFIG"))
	if path == "" {
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Config file unreadable, using environment only", "path", path, "error", err)
		return cfg
	}
	var overlay fileConfig
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		log.Warn("Config file invalid, using environment only", "path", path, "error", err)
		return cfg
	}
	if overlay.Port != "" {
		cfg.Port = overlay.Port
	}
	if overlay.Environment != "" {
		cfg.Environment = overlay.Environment
	}
	if overlay.Version != "" {
		cfg.Version = overlay.Version
	}
	if overlay.JWTSecretKey != "" {
		cfg.JWTSecretKey = overlay.JWTSecretKey
	}
	if overlay.AccessTokenTTL > 0 {
		cfg.AccessTokenTTL = time.Duration(overlay.AccessTokenTTL) * time.Second
	}
	if overlay.RefreshTokenTTL > 0 {
		cfg.RefreshTokenTTL = time.Duration(overlay.RefreshTokenTTL) * time.Second
	}
	if overlay.MetricsAddr != "" {
		cfg.MetricsAddr = overlay.MetricsAddr
	}
	return cfg
}
