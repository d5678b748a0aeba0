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

package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// Store persists JobResult records keyed by job id, one row per job, the
// way the persisted-state layout describes "one JSON-per-job under a
// history root" — here backed by PostgreSQL rather than loose files so
// concurrent orchestrator instances share one history.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-opened *sql.DB.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens a PostgreSQL connection using dsn and wraps it in a Store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("job: open store: %w", err)
	}
	return NewStore(db), nil
}

// SaveResult upserts result's JSON payload keyed by job id.
func (s *Store) SaveResult(ctx context.Context, result *Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("job: marshal result: %w", err)
	}

	query := `
		INSERT INTO job_results (job_id, outcome, payload, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			payload = EXCLUDED.payload,
			completed_at = EXCLUDED.completed_at
	`
	_, err = s.db.ExecContext(ctx, query, result.JobID, string(result.Outcome), payload, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("job: save result: %w", err)
	}
	return nil
}

// GetResult retrieves the JobResult for jobID, or ErrNotFound.
func (s *Store) GetResult(ctx context.Context, jobID string) (*Result, error) {
	query := `SELECT payload FROM job_results WHERE job_id = $1`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("job: get result: %w", err)
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("job: unmarshal result: %w", err)
	}
	return &result, nil
}

// SaveScorecard upserts the per-job scorecard JSON payload.
func (s *Store) SaveScorecard(ctx context.Context, jobID string, scorecard interface{}) error {
	payload, err := json.Marshal(scorecard)
	if err != nil {
		return fmt.Errorf("job: marshal scorecard: %w", err)
	}

	query := `
		INSERT INTO scorecards (job_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (job_id) DO UPDATE SET payload = EXCLUDED.payload
	`
	_, err = s.db.ExecContext(ctx, query, jobID, payload)
	if err != nil {
		return fmt.Errorf("job: save scorecard: %w", err)
	}
	return nil
}
