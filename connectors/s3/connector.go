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

// Package s3 provides an Amazon S3 connector used as a cloud output sink
// for produced PDF artifacts. It implements the base.Connector interface
// so the Multi-Server Orchestration Worker can address it the same way it
// addresses any other workflow backend.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"docpipeline/connectors/base"
)

// Connector implements base.Connector for Amazon S3 and S3-compatible
// object stores (MinIO, DigitalOcean Spaces, Cloudflare R2 via a custom
// endpoint).
type Connector struct {
	cfg           *base.ConnectorConfig
	client        *s3.Client
	defaultBucket string
}

// New creates a disconnected S3 connector.
func New() *Connector {
	return &Connector{}
}

// Connect builds the AWS config and verifies bucket access.
func (c *Connector) Connect(ctx context.Context, cfg *base.ConnectorConfig) error {
	c.cfg = cfg

	region := stringOption(cfg, "region", "us-east-1")
	endpoint := stringOption(cfg, "endpoint", "")
	forcePathStyle := boolOption(cfg, "force_path_style", false)
	c.defaultBucket = stringOption(cfg, "default_bucket", "")

	optFns := []func(*config.LoadOptions) error{config.WithRegion(region)}

	accessKeyID := cfg.Credentials["access_key_id"]
	secretAccessKey := cfg.Credentials["secret_access_key"]
	if accessKeyID != "" && secretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, cfg.Credentials["session_token"])
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return base.NewConnectorError(cfg.Name, "Connect", "failed to load AWS config", err)
	}

	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(endpoint) })
	}
	if forcePathStyle {
		opts = append(opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	c.client = s3.NewFromConfig(awsCfg, opts...)

	if c.defaultBucket != "" {
		if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.defaultBucket)}); err != nil {
			return base.NewConnectorError(cfg.Name, "Connect", "failed to verify bucket access", err)
		}
	} else if _, err := c.client.ListBuckets(ctx, &s3.ListBucketsInput{}); err != nil {
		return base.NewConnectorError(cfg.Name, "Connect", "failed to verify S3 connectivity", err)
	}

	return nil
}

// Disconnect drops the client. The AWS SDK holds no long-lived connection.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.client = nil
	return nil
}

// HealthCheck confirms the configured bucket (or the account) is reachable.
func (c *Connector) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	if c.client == nil {
		return &base.HealthStatus{Healthy: false, Error: "s3 client not initialized", Timestamp: time.Now()}, nil
	}

	start := time.Now()
	var err error
	if c.defaultBucket != "" {
		_, err = c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.defaultBucket)})
	} else {
		_, err = c.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	}
	latency := time.Since(start)

	if err != nil {
		return &base.HealthStatus{Healthy: false, Error: err.Error(), Latency: latency, Timestamp: time.Now()}, nil
	}
	return &base.HealthStatus{
		Healthy:   true,
		Latency:   latency,
		Details:   map[string]string{"default_bucket": c.defaultBucket},
		Timestamp: time.Now(),
	}, nil
}

// Query supports "get_object" and "list_objects" against the bucket named
// in query.Parameters["bucket"] (falling back to the default bucket).
func (c *Connector) Query(ctx context.Context, query *base.Query) (*base.QueryResult, error) {
	if c.client == nil {
		return nil, base.NewConnectorError(c.Name(), "Query", "s3 client not initialized", nil)
	}

	action := query.Statement
	if action == "" {
		action = "list_objects"
	}

	start := time.Now()
	bucket := c.bucketOf(query.Parameters)

	switch strings.ToLower(action) {
	case "get_object", "get":
		key, _ := query.Parameters["key"].(string)
		out, err := c.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
		if err != nil {
			return nil, base.NewConnectorError(c.Name(), "Query", "get_object failed", err)
		}
		defer out.Body.Close()
		data, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, base.NewConnectorError(c.Name(), "Query", "failed to read object body", err)
		}
		return &base.QueryResult{
			Rows:      []map[string]interface{}{{"key": key, "bytes": len(data), "body": data}},
			RowCount:  1,
			Duration:  time.Since(start),
			Connector: c.Name(),
		}, nil
	case "list_objects", "list":
		prefix, _ := query.Parameters["prefix"].(string)
		out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket), Prefix: aws.String(prefix)})
		if err != nil {
			return nil, base.NewConnectorError(c.Name(), "Query", "list_objects failed", err)
		}
		rows := make([]map[string]interface{}, 0, len(out.Contents))
		for _, obj := range out.Contents {
			rows = append(rows, map[string]interface{}{
				"key":  aws.ToString(obj.Key),
				"size": obj.Size,
			})
		}
		return &base.QueryResult{Rows: rows, RowCount: len(rows), Duration: time.Since(start), Connector: c.Name()}, nil
	default:
		return nil, base.NewConnectorError(c.Name(), "Query", fmt.Sprintf("unknown action: %s", action), nil)
	}
}

// Execute supports "put_object" and "delete_object" — the two operations
// the output-sink path of the orchestrator needs to deliver an artifact.
func (c *Connector) Execute(ctx context.Context, cmd *base.Command) (*base.CommandResult, error) {
	if c.client == nil {
		return nil, base.NewConnectorError(c.Name(), "Execute", "s3 client not initialized", nil)
	}

	start := time.Now()
	bucket := c.bucketOf(cmd.Parameters)

	switch strings.ToLower(cmd.Action) {
	case "put_object", "put", "upload":
		key, _ := cmd.Parameters["key"].(string)
		body, _ := cmd.Parameters["body"].([]byte)
		_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(body),
		})
		if err != nil {
			return nil, base.NewConnectorError(c.Name(), "Execute", "put_object failed", err)
		}
		return &base.CommandResult{Success: true, Duration: time.Since(start), Message: fmt.Sprintf("put %s/%s", bucket, key), Connector: c.Name()}, nil
	case "delete_object", "delete":
		key, _ := cmd.Parameters["key"].(string)
		_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
		if err != nil {
			return nil, base.NewConnectorError(c.Name(), "Execute", "delete_object failed", err)
		}
		return &base.CommandResult{Success: true, Duration: time.Since(start), Message: fmt.Sprintf("deleted %s/%s", bucket, key), Connector: c.Name()}, nil
	default:
		return nil, base.NewConnectorError(c.Name(), "Execute", fmt.Sprintf("unknown action: %s", cmd.Action), nil)
	}
}

func (c *Connector) bucketOf(params map[string]interface{}) string {
	if b, ok := params["bucket"].(string); ok && b != "" {
		return b
	}
	return c.defaultBucket
}

// Name returns the connector instance name.
func (c *Connector) Name() string {
	if c.cfg == nil {
		return "s3"
	}
	return c.cfg.Name
}

// Type returns the connector type tag.
func (c *Connector) Type() string { return "s3" }

// Version returns the connector version.
func (c *Connector) Version() string { return "1.0.0" }

// Capabilities lists the supported operations.
func (c *Connector) Capabilities() []string {
	return []string{"query", "execute", "streaming"}
}

func stringOption(cfg *base.ConnectorConfig, key, def string) string {
	if v, ok := cfg.Options[key].(string); ok && v != "" {
		return v
	}
	return def
}

func boolOption(cfg *base.ConnectorConfig, key string, def bool) bool {
	if v, ok := cfg.Options[key].(bool); ok {
		return v
	}
	return def
}
