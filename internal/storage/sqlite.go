package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// NewSQLiteStore creates SQLite-backed storage (local/development).
func NewSQLiteStore(path string, logger *logrus.Logger) (Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// WAL lets concurrent workers read while one writes
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqlStore{db: db, logger: logger}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pull_requests (
	repo_id TEXT NOT NULL,
	number INTEGER NOT NULL,
	head_sha TEXT NOT NULL,
	title TEXT,
	author TEXT,
	state TEXT NOT NULL,
	created_at TIMESTAMP,
	updated_at TIMESTAMP,
	PRIMARY KEY (repo_id, number)
);

CREATE TABLE IF NOT EXISTS signatures (
	repo_id TEXT NOT NULL,
	pr_number INTEGER NOT NULL,
	head_sha TEXT NOT NULL,
	channel TEXT NOT NULL,
	signature_version INTEGER NOT NULL,
	canonical_hash TEXT,
	minhash TEXT NOT NULL,
	shingle_count INTEGER NOT NULL,
	payload TEXT,
	PRIMARY KEY (repo_id, pr_number, head_sha, channel, signature_version)
);

CREATE TABLE IF NOT EXISTS analysis_runs (
	id TEXT PRIMARY KEY,
	repo_id TEXT NOT NULL,
	pr_number INTEGER NOT NULL,
	head_sha TEXT NOT NULL,
	signature_version INTEGER NOT NULL,
	algorithm_version INTEGER NOT NULL,
	config_version TEXT NOT NULL,
	candidate_count INTEGER NOT NULL,
	edge_count INTEGER NOT NULL,
	degraded_reasons TEXT,
	started_at TIMESTAMP,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_pr ON analysis_runs(repo_id, pr_number, completed_at);

CREATE TABLE IF NOT EXISTS scored_edges (
	run_id TEXT NOT NULL REFERENCES analysis_runs(id),
	repo_id TEXT NOT NULL,
	pr_number INTEGER NOT NULL,
	head_sha TEXT NOT NULL,
	other_pr INTEGER NOT NULL,
	other_sha TEXT NOT NULL,
	provenance TEXT NOT NULL,
	signals TEXT NOT NULL,
	category TEXT NOT NULL,
	final_score REAL NOT NULL,
	evidence TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_run ON scored_edges(run_id);
CREATE INDEX IF NOT EXISTS idx_edges_score ON scored_edges(repo_id, final_score);
`
