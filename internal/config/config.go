// Package config loads service configuration from the environment and
// selects per-network vault parameter sets.
package config

import (
	"os"
	"strconv"
)

// VaultParams are the six initialization parameters handed to the vault,
// plus the owner principal and an optional opening balance.
type VaultParams struct {
	Owner               string
	EscapeCaller        string
	EscapeDestination   string
	SecurityGuard       string
	AbsoluteMinTimeLock uint64
	TimeLock            uint64
	MaxGuardDelay       uint64
	OpeningBalance      string
}

// Config holds the service configuration.
type Config struct {
	Port         string
	Network      string
	NATSURL      string
	DatabaseURL  string
	RedisURL     string
	JWTSecret    string
	RateLimitRPS int
	EnvFile      string
	Params       VaultParams
}

// Load reads configuration from environment variables, starting from the
// selected network's parameter preset. VAULT_* variables override preset
// fields, which is how non-development networks get their real principals.
func Load() (*Config, error) {
	network := getEnv("NETWORK", "development")

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Network:      network,
		NATSURL:      getEnv("NATS_URL", ""),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 100),
		EnvFile:      getEnv("ENV_FILE", "environments.json"),
		Params:       NetworkParams(network),
	}

	p := &cfg.Params
	p.Owner = getEnv("VAULT_OWNER", p.Owner)
	p.EscapeCaller = getEnv("VAULT_ESCAPE_CALLER", p.EscapeCaller)
	p.EscapeDestination = getEnv("VAULT_ESCAPE_DESTINATION", p.EscapeDestination)
	p.SecurityGuard = getEnv("VAULT_SECURITY_GUARD", p.SecurityGuard)
	p.AbsoluteMinTimeLock = getEnvUint("VAULT_ABSOLUTE_MIN_TIMELOCK", p.AbsoluteMinTimeLock)
	p.TimeLock = getEnvUint("VAULT_TIMELOCK", p.TimeLock)
	p.MaxGuardDelay = getEnvUint("VAULT_MAX_GUARD_DELAY", p.MaxGuardDelay)
	p.OpeningBalance = getEnv("VAULT_OPENING_BALANCE", p.OpeningBalance)

	return cfg, nil
}

// NetworkParams returns the parameter preset for a network. The development
// network carries concrete test principals and short delays; every other
// network is an empty placeholder set expecting VAULT_* overrides.
func NetworkParams(network string) VaultParams {
	if network == "development" {
		return VaultParams{
			Owner:               "dev-owner",
			EscapeCaller:        "dev-escape-caller",
			EscapeDestination:   "dev-escape-destination",
			SecurityGuard:       "dev-guard",
			AbsoluteMinTimeLock: 60,
			TimeLock:            120,
			MaxGuardDelay:       600,
			OpeningBalance:      "0",
		}
	}
	return VaultParams{}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
