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

// Command bridge runs the Command Transport bridge: the HTTP-facing
// process that accepts job submissions for one design application and
// forwards them to the Proxy over a persistent WebSocket connection.
//
// Environment variables (see docpipeline/config for the full list and
// defaults):
//
//	BRIDGE_APPLICATION    target application tag (default "indesign")
//	BRIDGE_LISTEN_ADDR    HTTP listen address (default ":8081")
//	PROXY_WS_URL          Proxy WebSocket URL (default "ws://localhost:8080/ws")
//	PROXY_HTTP_URL        Proxy HTTP base URL (default "http://localhost:8080")
//	CONFIG_FILE           optional YAML config file layered under the above
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"docpipeline/config"
	"docpipeline/shared/logger"
	"docpipeline/transport"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("bridge: load config: %v", err)
	}

	lg := logger.New("bridge")
	bridge := transport.NewBridge(lg, cfg.Bridge.Application, cfg.Bridge.ProxyWSURL, cfg.Bridge.ProxyHTTPURL)

	if err := bridge.Connect(context.Background()); err != nil {
		log.Fatalf("bridge: connect to proxy: %v", err)
	}

	handler := bridge.Router()
	if cfg.Bridge.JWTSecret != "" {
		handler = transport.RequireBearerToken(cfg.Bridge.JWTSecret)(handler)
	}

	log.Printf("bridge: application %q listening on %s, proxy %s", cfg.Bridge.Application, cfg.Bridge.ListenAddr, cfg.Bridge.ProxyWSURL)
	log.Fatal(http.ListenAndServe(cfg.Bridge.ListenAddr, handler))
}
