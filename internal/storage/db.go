/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists layer states and export artifacts. The default
// backend is an embedded per-project SQLite database; a Postgres backend
// with the same interface exists for shared deployments.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
	applog "github.com/taxmusa/Auto-webtoon/internal/log"
	"github.com/taxmusa/Auto-webtoon/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// StateDirName stores all per-project engine data under the project root.
	StateDirName  = ".awt"
	StateFileName = "state.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump on breaking
	// changes and add a migration step.
	schemaVersion = 2
)

// RecordStore is the persistence surface the layer-state store works
// against.
type RecordStore interface {
	PutState(ctx context.Context, st domain.LayerState) error
	GetState(ctx context.Context, sceneID string) (domain.LayerState, bool, error)
	DeleteState(ctx context.Context, sceneID string) error
	ListStates(ctx context.Context) ([]domain.LayerState, error)
	PutArtifact(ctx context.Context, a domain.Artifact) error
	ListArtifacts(ctx context.Context, sceneID string) ([]domain.Artifact, error)
	Close() error
}

// StatePath returns the full path to the project's state database file.
func StatePath(projectRoot string) string {
	return filepath.Join(projectRoot, StateDirName, StateFileName)
}

// SQLiteStore is the embedded RecordStore.
type SQLiteStore struct {
	db *sql.DB
}

// Open ensures the per-project SQLite database exists at .awt/state.sqlite,
// enables WAL mode, and brings the schema up to date.
func Open(projectRoot string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, StateDirName), 0o755); err != nil {
		l.Error("create .awt dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .awt dir: %w", err)
	}

	path := StatePath(projectRoot)
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: a single connection avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("state store ready", slog.String("path", path))
	return &SQLiteStore{db: db}, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS layer_states (
			scene_id   TEXT PRIMARY KEY,
			revision   INTEGER NOT NULL,
			state_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id         TEXT PRIMARY KEY,
			scene_id   TEXT NOT NULL,
			path       TEXT NOT NULL,
			warnings   TEXT,
			created_at TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Never downgrade.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_artifacts_scene ON artifacts(scene_id, created_at);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; stop.
		}
		cur = next
	}
	return nil
}

// PutState upserts a scene's layer state.
func (s *SQLiteStore) PutState(ctx context.Context, st domain.LayerState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO layer_states(scene_id, revision, state_json, updated_at)
		VALUES(?,?,?,?)
		ON CONFLICT(scene_id) DO UPDATE SET revision=excluded.revision, state_json=excluded.state_json, updated_at=excluded.updated_at`,
		st.SceneID, st.Revision, string(b), st.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put state %s: %w", st.SceneID, err)
	}
	return nil
}

// GetState loads a scene's layer state; the second return is false when the
// scene is unknown.
func (s *SQLiteStore) GetState(ctx context.Context, sceneID string) (domain.LayerState, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM layer_states WHERE scene_id=?`, sceneID).Scan(&raw)
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

// DeleteState removes a scene's layer state and its artifact records.
func (s *SQLiteStore) DeleteState(ctx context.Context, sceneID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM layer_states WHERE scene_id=?`, sceneID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete state %s: %w", sceneID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE scene_id=?`, sceneID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete artifacts %s: %w", sceneID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListStates returns all stored layer states ordered by scene number.
func (s *SQLiteStore) ListStates(ctx context.Context) ([]domain.LayerState, error) {
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

// PutArtifact records a completed export.
func (s *SQLiteStore) PutArtifact(ctx context.Context, a domain.Artifact) error {
	warn, err := json.Marshal(a.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO artifacts(id, scene_id, path, warnings, created_at) VALUES(?,?,?,?,?)`,
		a.ID, a.SceneID, a.Path, string(warn), a.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", a.ID, err)
	}
	return nil
}

// ListArtifacts returns a scene's artifacts, oldest first.
func (s *SQLiteStore) ListArtifacts(ctx context.Context, sceneID string) ([]domain.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, scene_id, path, warnings, created_at FROM artifacts WHERE scene_id=? ORDER BY created_at`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts %s: %w", sceneID, err)
	}
	defer rows.Close()
	var out []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		var warn, created string
		if err := rows.Scan(&a.ID, &a.SceneID, &a.Path, &warn, &created); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if warn != "" {
			if err := json.Unmarshal([]byte(warn), &a.Warnings); err != nil {
				return nil, fmt.Errorf("decode warnings: %w", err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			a.CreatedAt = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func sortStates(states []domain.LayerState) {
	sort.Slice(states, func(i, j int) bool { return states[i].SceneNumber < states[j].SceneNumber })
}
