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

// Package redis provides the render-cache backend for the Multi-Server
// Orchestration Worker: a workflow step checks this connector before
// dispatching an expensive render, and writes the result back through it
// so a later step (or a later job entirely) can skip re-rendering an
// artifact that already exists.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"docpipeline/connectors/base"
)

// Connector implements base.Connector against a Redis instance.
type Connector struct {
	cfg    *base.ConnectorConfig
	client *redis.Client
}

// New creates a disconnected Redis connector.
func New() *Connector {
	return &Connector{}
}

// Connect opens a client and verifies it is reachable.
func (c *Connector) Connect(ctx context.Context, cfg *base.ConnectorConfig) error {
	c.cfg = cfg

	host, _ := cfg.Options["host"].(string)
	port := 6379
	if p, ok := cfg.Options["port"].(float64); ok {
		port = int(p)
	}
	password := cfg.Credentials["password"]
	db := 0
	if d, ok := cfg.Options["db"].(float64); ok {
		db = int(d)
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     100,
		MinIdleConns: 10,
	})

	if err := c.client.Ping(ctx).Err(); err != nil {
		return base.NewConnectorError(cfg.Name, "Connect", "failed to ping Redis", err)
	}

	return nil
}

// Disconnect closes the client.
func (c *Connector) Disconnect(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return base.NewConnectorError(c.cfg.Name, "Disconnect", "failed to close connection", err)
	}
	return nil
}

// HealthCheck pings Redis and reports cache size and pool stats.
func (c *Connector) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	if c.client == nil {
		return &base.HealthStatus{Healthy: false, Error: "client not connected"}, nil
	}

	start := time.Now()
	err := c.client.Ping(ctx).Err()
	latency := time.Since(start)

	if err != nil {
		return &base.HealthStatus{Healthy: false, Latency: latency, Timestamp: time.Now(), Error: err.Error()}, nil
	}

	dbSize := c.client.DBSize(ctx).Val()
	details := map[string]string{
		"db_size":    fmt.Sprintf("%d", dbSize),
		"connected":  "true",
		"pool_stats": fmt.Sprintf("%+v", c.client.PoolStats()),
	}

	return &base.HealthStatus{Healthy: true, Latency: latency, Details: details, Timestamp: time.Now()}, nil
}

// Query supports GET/EXISTS/TTL/KEYS/STATS, the read-side operations a
// workflow step uses to check the render cache before dispatching work.
func (c *Connector) Query(ctx context.Context, query *base.Query) (*base.QueryResult, error) {
	if c.client == nil {
		return nil, base.NewConnectorError(c.Name(), "Query", "client not connected", nil)
	}

	operation := query.Statement
	start := time.Now()
	var rows []map[string]interface{}
	var err error

	switch operation {
	case "GET":
		rows, err = c.get(ctx, query.Parameters)
	case "EXISTS":
		rows, err = c.exists(ctx, query.Parameters)
	case "TTL":
		rows, err = c.ttl(ctx, query.Parameters)
	case "KEYS":
		rows, err = c.keys(ctx, query.Parameters)
	case "STATS":
		rows, err = c.stats(ctx)
	default:
		return nil, base.NewConnectorError(c.Name(), "Query", fmt.Sprintf("unsupported operation: %s", operation), nil)
	}

	duration := time.Since(start)
	if err != nil {
		return nil, base.NewConnectorError(c.Name(), "Query", "query execution failed", err)
	}

	return &base.QueryResult{Rows: rows, RowCount: len(rows), Duration: duration, Connector: c.Name()}, nil
}

// Execute supports SET/DELETE/EXPIRE, used to record a render-cache
// entry after a worker produces an artifact, or to invalidate one.
func (c *Connector) Execute(ctx context.Context, cmd *base.Command) (*base.CommandResult, error) {
	if c.client == nil {
		return nil, base.NewConnectorError(c.Name(), "Execute", "client not connected", nil)
	}

	start := time.Now()
	var rowsAffected int
	var err error
	var message string

	switch cmd.Action {
	case "SET":
		rowsAffected, message, err = c.set(ctx, cmd.Parameters)
	case "DELETE":
		rowsAffected, message, err = c.delete(ctx, cmd.Parameters)
	case "EXPIRE":
		rowsAffected, message, err = c.expire(ctx, cmd.Parameters)
	default:
		return nil, base.NewConnectorError(c.Name(), "Execute", fmt.Sprintf("unsupported action: %s", cmd.Action), nil)
	}

	duration := time.Since(start)
	if err != nil {
		return &base.CommandResult{Success: false, Duration: duration, Message: err.Error(), Connector: c.Name()}, nil
	}

	return &base.CommandResult{Success: true, RowsAffected: rowsAffected, Duration: duration, Message: message, Connector: c.Name()}, nil
}

// Name returns the connector instance name.
func (c *Connector) Name() string {
	if c.cfg != nil {
		return c.cfg.Name
	}
	return "redis"
}

// Type returns the connector type tag.
func (c *Connector) Type() string { return "redis" }

// Version returns the connector version.
func (c *Connector) Version() string { return "1.0.0" }

// Capabilities lists the supported operations.
func (c *Connector) Capabilities() []string {
	return []string{"query", "execute", "cache", "kv-store"}
}

// get reads a cached render (or any cached value keyed by a workflow step).
func (c *Connector) get(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
	key, ok := params["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter required")
	}

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return []map[string]interface{}{{"key": key, "exists": false, "value": nil}}, nil
	}
	if err != nil {
		return nil, err
	}

	ttl, _ := c.client.TTL(ctx, key).Result()
	return []map[string]interface{}{
		{"key": key, "exists": true, "value": val, "ttl": int(ttl.Seconds())},
	}, nil
}

// exists checks whether a render-cache entry is already present.
func (c *Connector) exists(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
	key, ok := params["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter required")
	}

	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	return []map[string]interface{}{{"key": key, "exists": count > 0}}, nil
}

// ttl reports how much longer a cache entry has left to live.
func (c *Connector) ttl(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
	key, ok := params["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter required")
	}

	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	return []map[string]interface{}{{"key": key, "ttl": int(ttl.Seconds())}}, nil
}

// keys lists cache keys matching a pattern, e.g. all entries for one report.
func (c *Connector) keys(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
	pattern := "*"
	if p, ok := params["pattern"].(string); ok {
		pattern = p
	}

	limit := 100
	if l, ok := params["limit"].(float64); ok {
		limit = int(l)
	}

	var cursor uint64
	var keys []string
	for len(keys) < limit {
		var batch []string
		var err error
		batch, cursor, err = c.client.Scan(ctx, cursor, pattern, 10).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if cursor == 0 {
			break
		}
	}

	if len(keys) > limit {
		keys = keys[:limit]
	}

	rows := make([]map[string]interface{}, len(keys))
	for i, key := range keys {
		rows[i] = map[string]interface{}{"key": key}
	}

	return rows, nil
}

// stats reports render-cache occupancy and connection pool health.
func (c *Connector) stats(ctx context.Context) ([]map[string]interface{}, error) {
	info, err := c.client.Info(ctx, "stats").Result()
	if err != nil {
		return nil, err
	}

	dbSize, _ := c.client.DBSize(ctx).Result()
	poolStats := c.client.PoolStats()

	return []map[string]interface{}{
		{
			"db_size":         dbSize,
			"pool_hits":       poolStats.Hits,
			"pool_misses":     poolStats.Misses,
			"pool_timeouts":   poolStats.Timeouts,
			"pool_total_conn": poolStats.TotalConns,
			"pool_idle_conn":  poolStats.IdleConns,
			"info":            info,
		},
	}, nil
}

// set stores a render-cache entry, normally the output location of a
// just-completed worker invocation, keyed for a later step to look up.
func (c *Connector) set(ctx context.Context, params map[string]interface{}) (int, string, error) {
	key, ok := params["key"].(string)
	if !ok {
		return 0, "", fmt.Errorf("key parameter required")
	}

	value, ok := params["value"]
	if !ok {
		return 0, "", fmt.Errorf("value parameter required")
	}

	var valueStr string
	switch v := value.(type) {
	case string:
		valueStr = v
	case []byte:
		valueStr = string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return 0, "", err
		}
		valueStr = string(b)
	}

	ttl := time.Duration(0)
	if ttlVal, ok := params["ttl"]; ok {
		switch t := ttlVal.(type) {
		case float64:
			ttl = time.Duration(int(t)) * time.Second
		case int:
			ttl = time.Duration(t) * time.Second
		case string:
			if parsed, err := time.ParseDuration(t); err == nil {
				ttl = parsed
			}
		}
	}

	if err := c.client.Set(ctx, key, valueStr, ttl).Err(); err != nil {
		return 0, "", err
	}

	return 1, fmt.Sprintf("SET %s (ttl=%v)", key, ttl), nil
}

// delete invalidates a render-cache entry, e.g. after a report's source
// data changes and a cached render is no longer valid.
func (c *Connector) delete(ctx context.Context, params map[string]interface{}) (int, string, error) {
	key, ok := params["key"].(string)
	if !ok {
		return 0, "", fmt.Errorf("key parameter required")
	}

	count, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return 0, "", err
	}

	return int(count), fmt.Sprintf("DELETE %s", key), nil
}

// expire shortens or extends how long a cache entry remains valid.
func (c *Connector) expire(ctx context.Context, params map[string]interface{}) (int, string, error) {
	key, ok := params["key"].(string)
	if !ok {
		return 0, "", fmt.Errorf("key parameter required")
	}

	ttl := time.Duration(0)
	if ttlVal, ok := params["ttl"]; ok {
		switch t := ttlVal.(type) {
		case float64:
			ttl = time.Duration(int(t)) * time.Second
		case int:
			ttl = time.Duration(t) * time.Second
		case string:
			if parsed, err := strconv.Atoi(t); err == nil {
				ttl = time.Duration(parsed) * time.Second
			}
		}
	}

	if ttl == 0 {
		return 0, "", fmt.Errorf("ttl parameter required")
	}

	success, err := c.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return 0, "", err
	}

	rowsAffected := 0
	if success {
		rowsAffected = 1
	}

	return rowsAffected, fmt.Sprintf("EXPIRE %s %v", key, ttl), nil
}
