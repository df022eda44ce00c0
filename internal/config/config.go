// Package config reads process settings from an optional .env file and the
// environment. Values already present in the environment win over the file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ArenasTI/Flappy-Bird/internal/proto"
	"github.com/ArenasTI/Flappy-Bird/internal/telemetry"
	"github.com/ArenasTI/Flappy-Bird/logging"
)

const (
	EnvUDPPort     = "FLAPPY_UDP_PORT"
	EnvMonitorAddr = "FLAPPY_MONITOR_ADDR"
	EnvLogJSON     = "FLAPPY_LOG_JSON"
	EnvLogLevel    = "FLAPPY_LOG_LEVEL"
	EnvSeed        = "FLAPPY_SEED"
)

type Config struct {
	UDPPort int
	// MonitorAddr is the HTTP listen address. Empty disables the monitor.
	MonitorAddr string
	// LogJSONPath receives newline-delimited events. Empty disables it.
	LogJSONPath string
	LogLevel    logging.Severity
	// Seed fixes the pipe generator; zero seeds from the clock.
	Seed uint64
}

func Default() Config {
	return Config{
		UDPPort:     proto.DefaultPort,
		MonitorAddr: ":8080",
		LogLevel:    logging.SeverityInfo,
	}
}

// Load reads files (".env" when none are given) and then the environment.
// Missing files are skipped. Invalid values are reported to logger and the
// default is kept.
func Load(logger telemetry.Logger, files ...string) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	if len(files) == 0 {
		files = []string{".env"}
	}

	fromFiles := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Printf("ignoring %s: %v", file, err)
			}
			continue
		}
		for k, v := range values {
			if _, seen := fromFiles[k]; !seen {
				fromFiles[k] = v
			}
		}
	}

	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fromFiles[key]
		return v, ok
	}, logger)
}

// FromLookup builds a Config from an arbitrary key source.
func FromLookup(lookup func(string) (string, bool), logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	cfg := Default()

	if raw, ok := lookup(EnvUDPPort); ok && strings.TrimSpace(raw) != "" {
		if port, err := ParsePort(raw); err == nil {
			cfg.UDPPort = port
		} else {
			logger.Printf("invalid %s=%q: %v", EnvUDPPort, raw, err)
		}
	}
	if raw, ok := lookup(EnvMonitorAddr); ok {
		cfg.MonitorAddr = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(EnvLogJSON); ok {
		cfg.LogJSONPath = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(raw) != "" {
		if level, ok := logging.ParseSeverity(strings.ToLower(strings.TrimSpace(raw))); ok {
			cfg.LogLevel = level
		} else {
			logger.Printf("invalid %s=%q: want debug, info, warn or error", EnvLogLevel, raw)
		}
	}
	if raw, ok := lookup(EnvSeed); ok && strings.TrimSpace(raw) != "" {
		if seed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64); err == nil {
			cfg.Seed = seed
		} else {
			logger.Printf("invalid %s=%q: %v", EnvSeed, raw, err)
		}
	}
	return cfg
}

var errPortRange = errors.New("port must be between 1 and 65535")

// ParsePort parses a UDP port number.
func ParsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, errPortRange
	}
	return port, nil
}
