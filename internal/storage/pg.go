/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/taxmusa/Auto-webtoon/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore is a RecordStore over Postgres for shared deployments where
// several workers render the same project.
type PGStore struct {
	db *sql.DB
}

// PGDSNFromEnv reads the Postgres DSN, preferring AWT_PG_DSN over
// DATABASE_URL.
func PGDSNFromEnv() string {
	if v := os.Getenv("AWT_PG_DSN"); v != "" {
		return v
	}
	return os.Getenv("DATABASE_URL")
}

// OpenPG connects to Postgres and ensures the schema exists.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS layer_states (
			scene_id   TEXT PRIMARY KEY,
			revision   BIGINT NOT NULL,
			state_json JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id         TEXT PRIMARY KEY,
			scene_id   TEXT NOT NULL,
			path       TEXT NOT NULL,
			warnings   JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_scene ON artifacts(scene_id, created_at);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure pg schema: %w", err)
		}
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) PutState(ctx context.Context, st domain.LayerState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO layer_states(scene_id, revision, state_json, updated_at)
		VALUES($1,$2,$3,$4)
		ON CONFLICT(scene_id) DO UPDATE SET revision=EXCLUDED.revision, state_json=EXCLUDED.state_json, updated_at=EXCLUDED.updated_at`,
		st.SceneID, st.Revision, string(b), st.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("put state %s: %w", st.SceneID, err)
	}
	return nil
}

func (s *PGStore) GetState(ctx context.Context, sceneID string) (domain.LayerState, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM layer_states WHERE scene_id=$1`, sceneID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LayerState{}, false, nil
	}
	if err != nil {
		return domain.LayerState{}, false, fmt.Errorf("get state %s: %w", sceneID, err)
	}
	var st domain.LayerState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return domain.LayerState{}, false, fmt.Errorf("decode state %s: %w", sceneID, err)
	}
	return st, true, nil
}

func (s *PGStore) DeleteState(ctx context.Context, sceneID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM layer_states WHERE scene_id=$1`, sceneID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete state %s: %w", sceneID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE scene_id=$1`, sceneID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete artifacts %s: %w", sceneID, err)
	}
	return tx.Commit()
}

func (s *PGStore) ListStates(ctx context.Context) ([]domain.LayerState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state_json FROM layer_states`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()
	var out []domain.LayerState
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		var st domain.LayerState
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortStates(out)
	return out, nil
}

func (s *PGStore) PutArtifact(ctx context.Context, a domain.Artifact) error {
	warn, err := json.Marshal(a.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO artifacts(id, scene_id, path, warnings, created_at) VALUES($1,$2,$3,$4,$5)`,
		a.ID, a.SceneID, a.Path, string(warn), a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", a.ID, err)
	}
	return nil
}

func (s *PGStore) ListArtifacts(ctx context.Context, sceneID string) ([]domain.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, scene_id, path, COALESCE(warnings::text,''), created_at FROM artifacts WHERE scene_id=$1 ORDER BY created_at`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts %s: %w", sceneID, err)
	}
	defer rows.Close()
	var out []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		var warn string
		var created time.Time
		if err := rows.Scan(&a.ID, &a.SceneID, &a.Path, &warn, &created); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if warn != "" {
			if err := json.Unmarshal([]byte(warn), &a.Warnings); err != nil {
				return nil, fmt.Errorf("decode warnings: %w", err)
			}
		}
		a.CreatedAt = created
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) Close() error { return s.db.Close() }
