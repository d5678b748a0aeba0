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

// Package postgres provides the report/job-history backend for the
// Multi-Server Orchestration Worker: workflow steps that need to read
// prior job outcomes or record scorecard rows query this connector
// rather than the orchestrator's own job.Store directly, so a workflow
// can be composed purely out of named connector steps.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"docpipeline/connectors/base"
)

// Connector implements base.Connector against a PostgreSQL database.
type Connector struct {
	cfg *base.ConnectorConfig
	db  *sql.DB
}

// New creates a disconnected PostgreSQL connector.
func New() *Connector {
	return &Connector{}
}

// Connect opens the connection pool and verifies it is reachable.
func (c *Connector) Connect(ctx context.Context, cfg *base.ConnectorConfig) error {
	c.cfg = cfg

	db, err := sql.Open("postgres", cfg.ConnectionURL)
	if err != nil {
		return base.NewConnectorError(cfg.Name, "Connect", "failed to open connection", err)
	}

	maxOpenConns := 25
	maxIdleConns := 5
	connMaxLifetime := 5 * time.Minute

	if val, ok := cfg.Options["max_open_conns"].(int); ok {
		maxOpenConns = val
	}
	if val, ok := cfg.Options["max_idle_conns"].(int); ok {
		maxIdleConns = val
	}
	if val, ok := cfg.Options["conn_max_lifetime"].(string); ok {
		if duration, err := time.ParseDuration(val); err == nil {
			connMaxLifetime = duration
		}
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return base.NewConnectorError(cfg.Name, "Connect", "failed to ping database", err)
	}

	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *Connector) Disconnect(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return base.NewConnectorError(c.cfg.Name, "Disconnect", "failed to close connection", err)
	}
	return nil
}

// HealthCheck pings the database and reports pool statistics.
func (c *Connector) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	if c.db == nil {
		return &base.HealthStatus{Healthy: false, Error: "database not connected", Timestamp: time.Now()}, nil
	}

	start := time.Now()
	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return &base.HealthStatus{Healthy: false, Latency: latency, Timestamp: time.Now(), Error: err.Error()}, nil
	}

	stats := c.db.Stats()
	details := map[string]string{
		"open_connections": fmt.Sprintf("%d", stats.OpenConnections),
		"in_use":           fmt.Sprintf("%d", stats.InUse),
		"idle":             fmt.Sprintf("%d", stats.Idle),
	}

	return &base.HealthStatus{Healthy: true, Latency: latency, Details: details, Timestamp: time.Now()}, nil
}

// Query runs a read against report/job-history tables, e.g. a workflow
// step checking whether a prior render of the same report already
// exists before kicking off a new one.
func (c *Connector) Query(ctx context.Context, query *base.Query) (*base.QueryResult, error) {
	if c.db == nil {
		return nil, base.NewConnectorError(c.Name(), "Query", "database not connected", nil)
	}

	timeout := query.Timeout
	if timeout == 0 {
		timeout = c.cfg.Timeout
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args, err := c.buildArgs(query.Parameters)
	if err != nil {
		return nil, base.NewConnectorError(c.Name(), "Query", "failed to build query parameters", err)
	}

	start := time.Now()
	rows, err := c.db.QueryContext(queryCtx, query.Statement, args...)
	if err != nil {
		return nil, base.NewConnectorError(c.Name(), "Query", "query execution failed", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, base.NewConnectorError(c.Name(), "Query", "failed to get columns", err)
	}

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		if query.Limit > 0 && len(results) >= query.Limit {
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, base.NewConnectorError(c.Name(), "Query", "failed to scan row", err)
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, base.NewConnectorError(c.Name(), "Query", "error during row iteration", err)
	}

	return &base.QueryResult{
		Rows:      results,
		RowCount:  len(results),
		Duration:  time.Since(start),
		Connector: c.Name(),
	}, nil
}

// Execute records a workflow step's side effect (e.g. inserting a
// scorecard row or marking a report run complete).
func (c *Connector) Execute(ctx context.Context, cmd *base.Command) (*base.CommandResult, error) {
	if c.db == nil {
		return nil, base.NewConnectorError(c.Name(), "Execute", "database not connected", nil)
	}

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = c.cfg.Timeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args, err := c.buildArgs(cmd.Parameters)
	if err != nil {
		return nil, base.NewConnectorError(c.Name(), "Execute", "failed to build command parameters", err)
	}

	start := time.Now()
	result, err := c.db.ExecContext(execCtx, cmd.Statement, args...)
	if err != nil {
		return nil, base.NewConnectorError(c.Name(), "Execute", "command execution failed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		rowsAffected = 0
	}

	return &base.CommandResult{
		Success:      true,
		RowsAffected: int(rowsAffected),
		Duration:     time.Since(start),
		Message:      fmt.Sprintf("%s executed successfully", cmd.Action),
		Connector:    c.Name(),
	}, nil
}

// Name returns the connector instance name.
func (c *Connector) Name() string {
	if c.cfg == nil {
		return "postgres"
	}
	return c.cfg.Name
}

// Type returns the connector type tag.
func (c *Connector) Type() string { return "postgres" }

// Version returns the connector version.
func (c *Connector) Version() string { return "1.0.0" }

// Capabilities lists the supported operations.
func (c *Connector) Capabilities() []string {
	return []string{"query", "execute", "transactions", "prepared_statements", "connection_pooling"}
}

// buildArgs converts a parameter map to the positional argument slice
// PostgreSQL's $1, $2, ... placeholders expect. Numeric keys ("1", "2")
// are ordered by value and come first; any other keys follow in
// lexicographic order. The statement is not parsed to match names to
// positions.
func (c *Connector) buildArgs(params map[string]interface{}) ([]interface{}, error) {
	if len(params) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, ei := strconv.Atoi(keys[i])
		nj, ej := strconv.Atoi(keys[j])
		if ei == nil && ej == nil {
			return ni < nj
		}
		if (ei == nil) != (ej == nil) {
			return ei == nil
		}
		return keys[i] < keys[j]
	})

	args := make([]interface{}, 0, len(params))
	for _, k := range keys {
		args = append(args, params[k])
	}

	return args, nil
}
