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

package s3

import (
	"context"
	"testing"

	"docpipeline/connectors/base"
)

func TestNew(t *testing.T) {
	conn := New()

	if conn == nil {
		t.Fatal("expected connector to be created")
	}

	if conn.Type() != "s3" {
		t.Errorf("expected type s3, got %s", conn.Type())
	}

	if conn.Version() != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", conn.Version())
	}

	caps := conn.Capabilities()
	if len(caps) != 3 {
		t.Errorf("expected 3 capabilities, got %d", len(caps))
	}

	expectedCaps := map[string]bool{
		"query":     true,
		"execute":   true,
		"streaming": true,
	}

	for _, c := range caps {
		if !expectedCaps[c] {
			t.Errorf("unexpected capability: %s", c)
		}
	}
}

func TestQueryWithoutConnect(t *testing.T) {
	conn := New()
	ctx := context.Background()

	_, err := conn.Query(ctx, &base.Query{Statement: "list_objects"})
	if err == nil {
		t.Error("expected error when querying without connection")
	}
}

func TestExecuteWithoutConnect(t *testing.T) {
	conn := New()
	ctx := context.Background()

	_, err := conn.Execute(ctx, &base.Command{Action: "put_object"})
	if err == nil {
		t.Error("expected error when executing without connection")
	}
}

func TestHealthCheckWithoutConnect(t *testing.T) {
	conn := New()
	ctx := context.Background()

	status, err := conn.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.Healthy {
		t.Error("expected unhealthy status without connection")
	}
}

func TestBucketOf(t *testing.T) {
	conn := &Connector{defaultBucket: "default-bucket"}

	t.Run("bucket from params", func(t *testing.T) {
		params := map[string]interface{}{"bucket": "custom-bucket"}
		if b := conn.bucketOf(params); b != "custom-bucket" {
			t.Errorf("expected custom-bucket, got %s", b)
		}
	})

	t.Run("default bucket", func(t *testing.T) {
		if b := conn.bucketOf(map[string]interface{}{}); b != "default-bucket" {
			t.Errorf("expected default-bucket, got %s", b)
		}
	})
}

func TestStringOption(t *testing.T) {
	cfg := &base.ConnectorConfig{Options: map[string]interface{}{"region": "us-west-2"}}

	if v := stringOption(cfg, "region", "us-east-1"); v != "us-west-2" {
		t.Errorf("expected us-west-2, got %s", v)
	}
	if v := stringOption(cfg, "endpoint", "default"); v != "default" {
		t.Errorf("expected default, got %s", v)
	}
}

func TestBoolOption(t *testing.T) {
	cfg := &base.ConnectorConfig{Options: map[string]interface{}{"force_path_style": true}}

	if v := boolOption(cfg, "force_path_style", false); !v {
		t.Error("expected true")
	}
	if v := boolOption(cfg, "missing", false); v {
		t.Error("expected default false")
	}
}

func TestNameDefaultsWithoutConfig(t *testing.T) {
	conn := New()
	if conn.Name() != "s3" {
		t.Errorf("expected default name s3, got %s", conn.Name())
	}
}

func TestQueryUnknownAction(t *testing.T) {
	conn := &Connector{cfg: &base.ConnectorConfig{Name: "test-s3"}}
	// client is nil, so this should fail on the nil-client guard first.
	_, err := conn.Query(context.Background(), &base.Query{Statement: "unknown_query"})
	if err == nil {
		t.Error("expected error for unsupported query")
	}
	connErr, ok := err.(*base.ConnectorError)
	if !ok {
		t.Error("expected ConnectorError")
	} else if connErr.Operation != "Query" {
		t.Errorf("expected operation Query, got %s", connErr.Operation)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	conn := &Connector{cfg: &base.ConnectorConfig{Name: "test-s3"}}
	_, err := conn.Execute(context.Background(), &base.Command{Action: "unknown_action"})
	if err == nil {
		t.Error("expected error for unsupported action")
	}
	connErr, ok := err.(*base.ConnectorError)
	if !ok {
		t.Error("expected ConnectorError")
	} else if connErr.Operation != "Execute" {
		t.Errorf("expected operation Execute, got %s", connErr.Operation)
	}
}

func TestDisconnect(t *testing.T) {
	conn := New()

	if err := conn.Disconnect(context.Background()); err != nil {
		t.Errorf("unexpected error on disconnect: %v", err)
	}
}
