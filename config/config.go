package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             int
	DataDir          string
	StoreBackend     string
	MaxConnections   int
	HandshakeTimeout int // seconds
	WriteTimeout     int // seconds
	MetricsAddr      string
}

func Load() *Config {
	cfg := &Config{
		Port:             2580,
		DataDir:          "data",
		StoreBackend:     "file",
		MaxConnections:   30,
		HandshakeTimeout: 10,
		WriteTimeout:     30,
		MetricsAddr:      "",
	}

	if portStr := os.Getenv("MSGBOARD_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	if dataDir := os.Getenv("MSGBOARD_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}

	if backend := os.Getenv("MSGBOARD_STORE"); backend != "" {
		cfg.StoreBackend = backend
	}

	if maxStr := os.Getenv("MSGBOARD_MAX_CONNECTIONS"); maxStr != "" {
		if max, err := strconv.Atoi(maxStr); err == nil {
			cfg.MaxConnections = max
		}
	}

	if timeoutStr := os.Getenv("MSGBOARD_HANDSHAKE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.HandshakeTimeout = timeout
		}
	}

	if timeoutStr := os.Getenv("MSGBOARD_WRITE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if addr := os.Getenv("MSGBOARD_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}

	return cfg
}
