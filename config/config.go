// Copyright 2025 The Docpipeline Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Bridge holds the Command Transport bridge's process configuration.
type Bridge struct {
	Application  string `yaml:"application"`
	ListenAddr   string `yaml:"listen_addr"`
	ProxyWSURL   string `yaml:"proxy_ws_url"`
	ProxyHTTPURL string `yaml:"proxy_http_url"`
	// JWTSecret enables bearer-token auth on the bridge's HTTP surface
	// when non-empty. Left empty, the bridge serves unauthenticated,
	// matching the spec's treatment of auth as an operator-configured
	// boundary rather than a hardcoded requirement.
	JWTSecret string `yaml:"jwt_secret"`
}

// Proxy holds the proxy/registry process's configuration.
type Proxy struct {
	ListenAddr  string        `yaml:"listen_addr"`
	RedisURL    string        `yaml:"redis_url"`
	LockWait    time.Duration `yaml:"lock_wait"`
	MetricsPort int           `yaml:"metrics_port"`
}

// Orchestrator holds the job orchestrator's configuration.
type Orchestrator struct {
	PostgresDSN     string   `yaml:"postgres_dsn"`
	AllowedRoots    []string `yaml:"allowed_roots"`
	DailyBudgetUSD  float64  `yaml:"daily_budget_usd"`
	MonthlyBudgetUSD float64 `yaml:"monthly_budget_usd"`
	ServerlessURL   string   `yaml:"serverless_url"`
}

// Config is the full process configuration surface, only the relevant
// section of which a given binary typically reads.
type Config struct {
	Bridge       Bridge       `yaml:"bridge"`
	Proxy        Proxy        `yaml:"proxy"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		Bridge: Bridge{
			Application:  "indesign",
			ListenAddr:   ":8081",
			ProxyWSURL:   "ws://localhost:8080/ws",
			ProxyHTTPURL: "http://localhost:8080",
		},
		Proxy: Proxy{
			ListenAddr:  ":8080",
			RedisURL:    "redis://localhost:6379/0",
			LockWait:    30 * time.Second,
			MetricsPort: 9090,
		},
		Orchestrator: Orchestrator{
			PostgresDSN:      "postgres://localhost:5432/docpipeline?sslmode=disable",
			AllowedRoots:     []string{"/var/docpipeline/output"},
			DailyBudgetUSD:   0,
			MonthlyBudgetUSD: 0,
			ServerlessURL:    "",
		},
	}
}

// Load reads yamlPath (if non-empty and present) as the base
// configuration, then applies environment variable overrides on top.
// A missing yamlPath is not an error; Load falls back to Default().
func Load(yamlPath string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", yamlPath, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", yamlPath, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Bridge.Application = getEnv("BRIDGE_APPLICATION", cfg.Bridge.Application)
	cfg.Bridge.ListenAddr = getEnv("BRIDGE_LISTEN_ADDR", cfg.Bridge.ListenAddr)
	cfg.Bridge.ProxyWSURL = getEnv("PROXY_WS_URL", cfg.Bridge.ProxyWSURL)
	cfg.Bridge.ProxyHTTPURL = getEnv("PROXY_HTTP_URL", cfg.Bridge.ProxyHTTPURL)
	cfg.Bridge.JWTSecret = getEnv("BRIDGE_JWT_SECRET", cfg.Bridge.JWTSecret)

	cfg.Proxy.ListenAddr = getEnv("PROXY_LISTEN_ADDR", cfg.Proxy.ListenAddr)
	cfg.Proxy.RedisURL = getEnv("REDIS_URL", cfg.Proxy.RedisURL)
	cfg.Proxy.LockWait = getEnvDuration("PROXY_LOCK_WAIT", cfg.Proxy.LockWait)
	cfg.Proxy.MetricsPort = getEnvInt("PROXY_METRICS_PORT", cfg.Proxy.MetricsPort)

	cfg.Orchestrator.PostgresDSN = getEnv("POSTGRES_DSN", cfg.Orchestrator.PostgresDSN)
	cfg.Orchestrator.DailyBudgetUSD = getEnvFloat("DAILY_BUDGET_USD", cfg.Orchestrator.DailyBudgetUSD)
	cfg.Orchestrator.MonthlyBudgetUSD = getEnvFloat("MONTHLY_BUDGET_USD", cfg.Orchestrator.MonthlyBudgetUSD)
	cfg.Orchestrator.ServerlessURL = getEnv("SERVERLESS_URL", cfg.Orchestrator.ServerlessURL)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
