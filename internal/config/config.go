package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates all service settings.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Session SessionConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr         string
	AllowOrigins []string
}

// StoreConfig describes the sqlite database location.
type StoreConfig struct {
	Path string
}

// SessionConfig describes the auth cookie store.
type SessionConfig struct {
	Secret string
	Secure bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Store:   StoreConfig{Path: getEnvOrDefault("CHIRP_DB_PATH", "chirp.db")},
		Session: session,
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5001"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		// Allow either ":5001"/"127.0.0.1:5001" or a bare port number.
		addr = ":" + port
	}

	var origins []string
	if raw := strings.TrimSpace(os.Getenv("CHIRP_ALLOW_ORIGINS")); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return ServerConfig{Addr: addr, AllowOrigins: origins}, nil
}

func loadSessionConfig() (SessionConfig, error) {
	secret := strings.TrimSpace(os.Getenv("CHIRP_SESSION_SECRET"))
	if secret == "" {
		return SessionConfig{}, fmt.Errorf("CHIRP_SESSION_SECRET is required")
	}

	secure, err := parseBoolEnv("CHIRP_COOKIE_SECURE", false)
	if err != nil {
		return SessionConfig{}, err
	}

	return SessionConfig{Secret: secret, Secure: secure}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
