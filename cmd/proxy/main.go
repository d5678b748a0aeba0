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

// Command proxy runs the WebSocket hub that sits between Bridges and
// Executors: connection registry, readiness, document-level locking, and
// idempotent response replay.
//
// Environment variables (see docpipeline/config for the full list and
// defaults):
//
//	PROXY_LISTEN_ADDR     HTTP/WebSocket listen address (default ":8080")
//	REDIS_URL             Redis URL backing the idempotency cache (optional)
//	PROXY_LOCK_WAIT       read into the config; the hub always waits
//	                      proxy.DefaultLockWait (30s) for a document lock
//	CONFIG_FILE           optional YAML config file layered under the above
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"

	"docpipeline/config"
	"docpipeline/proxy"
	"docpipeline/proxy/registry"
	"docpipeline/shared/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("proxy: load config: %v", err)
	}

	lg := logger.New("proxy")

	var rdb *redis.Client
	if cfg.Proxy.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Proxy.RedisURL)
		if err != nil {
			log.Fatalf("proxy: parse redis url: %v", err)
		}
		rdb = redis.NewClient(opts)
	}

	reg := registry.New()
	locks := proxy.NewLockManager()
	idem := proxy.NewIdempotencyCache(lg, rdb)
	hub := proxy.NewHub(lg, reg, locks, idem)
	server := proxy.NewServer(lg, reg, hub)

	log.Printf("proxy: listening on %s", cfg.Proxy.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.Proxy.ListenAddr, server.Router()))
}
