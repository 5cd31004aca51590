package storage

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// NewPostgresStore creates PostgreSQL-backed storage (shared deployments).
func NewPostgresStore(dsn string, logger *logrus.Logger) (Store, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqlStore{db: db, logger: logger}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pull_requests (
	repo_id TEXT NOT NULL,
	number INTEGER NOT NULL,
	head_sha TEXT NOT NULL,
	title TEXT,
	author TEXT,
	state TEXT NOT NULL,
	created_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ,
	PRIMARY KEY (repo_id, number)
);

CREATE TABLE IF NOT EXISTS signatures (
	repo_id TEXT NOT NULL,
	pr_number INTEGER NOT NULL,
	head_sha TEXT NOT NULL,
	channel TEXT NOT NULL,
	signature_version INTEGER NOT NULL,
	canonical_hash TEXT,
	minhash JSONB NOT NULL,
	shingle_count INTEGER NOT NULL,
	payload JSONB,
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
	degraded_reasons JSONB,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_runs_pr ON analysis_runs(repo_id, pr_number, completed_at);

CREATE TABLE IF NOT EXISTS scored_edges (
	run_id TEXT NOT NULL REFERENCES analysis_runs(id),
	repo_id TEXT NOT NULL,
	pr_number INTEGER NOT NULL,
	head_sha TEXT NOT NULL,
	other_pr INTEGER NOT NULL,
	other_sha TEXT NOT NULL,
	provenance JSONB NOT NULL,
	signals JSONB NOT NULL,
	category TEXT NOT NULL,
	final_score DOUBLE PRECISION NOT NULL,
	evidence JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_run ON scored_edges(run_id);
CREATE INDEX IF NOT EXISTS idx_edges_score ON scored_edges(repo_id, final_score);
`
