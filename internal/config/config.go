// Copyright (c) 2015-2021 MinIO, Inc.
//
// This file is part of MinIO Object Storage stack
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads Sevino's SEVINO_* environment variables into a
// plain Config value. There is no package-level global: callers load
// once at startup and pass the result down to the engine and HTTP
// layer constructors.
package config

import (
	"strconv"
	"strings"

	"github.com/minio/pkg/env"

	"github.com/sevino/sevino/internal/engine"
)

// Default values for the environment variables below.
const (
	DefaultHost         = ""
	DefaultPort         = "8000"
	DefaultDataDir      = "./data"
	DefaultMaxFileSize  = 104857600 // 100 MiB
	EnableOn            = "on"
	EnableOff           = "off"
)

// Environment variable names.
const (
	EnvHost                   = "SEVINO_HOST"
	EnvPort                   = "SEVINO_PORT"
	EnvDataDir                = "SEVINO_DATA_DIR"
	EnvMaxFileSize            = "SEVINO_MAX_FILE_SIZE"
	EnvEnableCORS             = "SEVINO_ENABLE_CORS"
	EnvCORSOrigins            = "SEVINO_CORS_ORIGINS"
	EnvCORSMethods            = "SEVINO_CORS_METHODS"
	EnvCORSHeaders            = "SEVINO_CORS_HEADERS"
	EnvCORSAllowCredentials   = "SEVINO_CORS_ALLOW_CREDENTIALS"
)

// CORSConfig groups the CORS-related environment variables.
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// Config is the fully-resolved server configuration.
type Config struct {
	Host string
	Port string

	Engine engine.Config

	CORS CORSConfig
}

// Load reads every SEVINO_* environment variable and returns a
// resolved Config.
func Load() (Config, error) {
	maxSize, err := parseSize(env.Get(EnvMaxFileSize, strconv.Itoa(DefaultMaxFileSize)))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Host: env.Get(EnvHost, DefaultHost),
		Port: env.Get(EnvPort, DefaultPort),
		Engine: engine.Config{
			DataRoot:       env.Get(EnvDataDir, DefaultDataDir),
			MaxPayloadSize: maxSize,
		},
		CORS: CORSConfig{
			Enabled:          env.Get(EnvEnableCORS, EnableOn) == EnableOn,
			AllowedOrigins:   splitCSV(env.Get(EnvCORSOrigins, "*")),
			AllowedMethods:   splitCSV(env.Get(EnvCORSMethods, "GET,PUT,POST,DELETE,HEAD,OPTIONS")),
			AllowedHeaders:   splitCSV(env.Get(EnvCORSHeaders, "*")),
			AllowCredentials: env.Get(EnvCORSAllowCredentials, EnableOff) == EnableOn,
		},
	}
	return cfg, nil
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseSize accepts either a plain byte count or a humanized size
// string (e.g. "100MB").
func parseSize(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	return parseHumanSize(s)
}
