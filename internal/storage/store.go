package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/dupehound/dupehound/internal/models"
)

// sqlStore implements Store over sqlx. Queries are written with ? bindvars
// and rebound per dialect, so SQLite and Postgres share one implementation.
type sqlStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

type prRow struct {
	RepoID    string    `db:"repo_id"`
	Number    int       `db:"number"`
	HeadSHA   string    `db:"head_sha"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	State     string    `db:"state"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type signatureRow struct {
	RepoID           string `db:"repo_id"`
	PRNumber         int    `db:"pr_number"`
	HeadSHA          string `db:"head_sha"`
	Channel          string `db:"channel"`
	SignatureVersion int    `db:"signature_version"`
	CanonicalHash    string `db:"canonical_hash"`
	MinHash          []byte `db:"minhash"`
	ShingleCount     int    `db:"shingle_count"`
	Payload          []byte `db:"payload"`
}

type runRow struct {
	ID               string    `db:"id"`
	RepoID           string    `db:"repo_id"`
	PRNumber         int       `db:"pr_number"`
	HeadSHA          string    `db:"head_sha"`
	SignatureVersion int       `db:"signature_version"`
	AlgorithmVersion int       `db:"algorithm_version"`
	ConfigVersion    string    `db:"config_version"`
	CandidateCount   int       `db:"candidate_count"`
	EdgeCount        int       `db:"edge_count"`
	DegradedReasons  []byte    `db:"degraded_reasons"`
	StartedAt        time.Time `db:"started_at"`
	CompletedAt      time.Time `db:"completed_at"`
}

type edgeRow struct {
	RunID      string  `db:"run_id"`
	RepoID     string  `db:"repo_id"`
	PRNumber   int     `db:"pr_number"`
	HeadSHA    string  `db:"head_sha"`
	OtherPR    int     `db:"other_pr"`
	OtherSHA   string  `db:"other_sha"`
	Provenance []byte  `db:"provenance"`
	Signals    []byte  `db:"signals"`
	Category   string  `db:"category"`
	FinalScore float64 `db:"final_score"`
	Evidence   []byte  `db:"evidence"`
}

func (s *sqlStore) SavePullRequest(ctx context.Context, pr *models.PullRequest) error {
	query := s.db.Rebind(`
		INSERT INTO pull_requests (repo_id, number, head_sha, title, author, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo_id, number) DO UPDATE SET
			head_sha = excluded.head_sha,
			title = excluded.title,
			state = excluded.state,
			updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query,
		pr.RepoID, pr.Number, pr.HeadSHA, pr.Title, pr.Author, pr.State, pr.CreatedAt, pr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save pull request %s#%d: %w", pr.RepoID, pr.Number, err)
	}
	return nil
}

func (s *sqlStore) GetPullRequest(ctx context.Context, repoID string, number int) (*models.PullRequest, error) {
	var row prRow
	query := s.db.Rebind(`SELECT * FROM pull_requests WHERE repo_id = ? AND number = ?`)
	if err := s.db.GetContext(ctx, &row, query, repoID, number); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pull request %s#%d: %w", repoID, number, err)
	}
	pr := models.PullRequest(row)
	return &pr, nil
}

func (s *sqlStore) ListOpenPullRequests(ctx context.Context, repoID string) ([]*models.PullRequest, error) {
	var rows []prRow
	query := s.db.Rebind(`SELECT * FROM pull_requests WHERE repo_id = ? AND state = 'open' ORDER BY number`)
	if err := s.db.SelectContext(ctx, &rows, query, repoID); err != nil {
		return nil, fmt.Errorf("list open pull requests for %s: %w", repoID, err)
	}

	prs := make([]*models.PullRequest, len(rows))
	for i, row := range rows {
		pr := models.PullRequest(row)
		prs[i] = &pr
	}
	return prs, nil
}

func (s *sqlStore) SaveSignature(ctx context.Context, sig *models.ChannelSignature) error {
	minhash, err := json.Marshal(sig.MinHash)
	if err != nil {
		return fmt.Errorf("marshal minhash: %w", err)
	}
	payload, err := marshalPayload(sig)
	if err != nil {
		return err
	}

	query := s.db.Rebind(`
		INSERT INTO signatures (repo_id, pr_number, head_sha, channel, signature_version,
			canonical_hash, minhash, shingle_count, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo_id, pr_number, head_sha, channel, signature_version) DO UPDATE SET
			canonical_hash = excluded.canonical_hash,
			minhash = excluded.minhash,
			shingle_count = excluded.shingle_count,
			payload = excluded.payload`)

	_, err = s.db.ExecContext(ctx, query,
		sig.RepoID, sig.PRNumber, sig.HeadSHA, string(sig.Channel), sig.SignatureVersion,
		sig.CanonicalHash, minhash, sig.ShingleCount, payload)
	if err != nil {
		return fmt.Errorf("save signature %s#%d %s: %w", sig.RepoID, sig.PRNumber, sig.Channel, err)
	}
	return nil
}

func (s *sqlStore) GetSignature(ctx context.Context, repoID string, prNumber int, headSHA string, channel models.Channel, sigVersion int) (*models.ChannelSignature, error) {
	var row signatureRow
	query := s.db.Rebind(`
		SELECT * FROM signatures
		WHERE repo_id = ? AND pr_number = ? AND head_sha = ? AND channel = ? AND signature_version = ?`)
	err := s.db.GetContext(ctx, &row, query, repoID, prNumber, headSHA, string(channel), sigVersion)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get signature %s#%d %s: %w", repoID, prNumber, channel, err)
	}

	sig := &models.ChannelSignature{
		RepoID:           row.RepoID,
		PRNumber:         row.PRNumber,
		HeadSHA:          row.HeadSHA,
		Channel:          models.Channel(row.Channel),
		SignatureVersion: row.SignatureVersion,
		CanonicalHash:    row.CanonicalHash,
		ShingleCount:     row.ShingleCount,
	}
	if err := json.Unmarshal(row.MinHash, &sig.MinHash); err != nil {
		return nil, fmt.Errorf("unmarshal minhash: %w", err)
	}
	if err := unmarshalPayload(sig, row.Payload); err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *sqlStore) SaveAnalysisRun(ctx context.Context, run *models.AnalysisRun, edges []*models.ScoredEdge) error {
	reasons, err := json.Marshal(run.DegradedReasons)
	if err != nil {
		return fmt.Errorf("marshal degraded reasons: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	runQuery := tx.Rebind(`
		INSERT INTO analysis_runs (id, repo_id, pr_number, head_sha, signature_version,
			algorithm_version, config_version, candidate_count, edge_count,
			degraded_reasons, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = tx.ExecContext(ctx, runQuery,
		run.ID, run.RepoID, run.PRNumber, run.HeadSHA, run.SignatureVersion,
		run.AlgorithmVersion, run.ConfigVersion, run.CandidateCount, run.EdgeCount,
		reasons, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("save analysis run %s: %w", run.ID, err)
	}

	edgeQuery := tx.Rebind(`
		INSERT INTO scored_edges (run_id, repo_id, pr_number, head_sha, other_pr, other_sha,
			provenance, signals, category, final_score, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, edge := range edges {
		provenance, err := json.Marshal(edge.Provenance)
		if err != nil {
			return fmt.Errorf("marshal provenance: %w", err)
		}
		signals, err := json.Marshal(edge.Signals)
		if err != nil {
			return fmt.Errorf("marshal signals: %w", err)
		}
		evidence, err := json.Marshal(edge.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}

		_, err = tx.ExecContext(ctx, edgeQuery,
			edge.RunID, edge.RepoID, edge.PRNumber, edge.HeadSHA, edge.OtherPR, edge.OtherSHA,
			provenance, signals, string(edge.Category), edge.FinalScore, evidence)
		if err != nil {
			return fmt.Errorf("save scored edge %s -> #%d: %w", edge.RunID, edge.OtherPR, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis run %s: %w", run.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id": run.ID,
		"pr":     run.PRNumber,
		"edges":  len(edges),
	}).Debug("analysis run saved")
	return nil
}

func (s *sqlStore) GetLatestRun(ctx context.Context, repoID string, prNumber int) (*models.AnalysisRun, error) {
	var row runRow
	query := s.db.Rebind(`
		SELECT * FROM analysis_runs
		WHERE repo_id = ? AND pr_number = ?
		ORDER BY completed_at DESC LIMIT 1`)
	if err := s.db.GetContext(ctx, &row, query, repoID, prNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest run %s#%d: %w", repoID, prNumber, err)
	}
	return rowToRun(&row)
}

func (s *sqlStore) ListEdges(ctx context.Context, runID string) ([]*models.ScoredEdge, error) {
	var rows []edgeRow
	query := s.db.Rebind(`SELECT * FROM scored_edges WHERE run_id = ? ORDER BY final_score DESC`)
	if err := s.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("list edges for run %s: %w", runID, err)
	}
	return rowsToEdges(rows)
}

func (s *sqlStore) ListEdgesAboveScore(ctx context.Context, repoID string, minScore float64) ([]*models.ScoredEdge, error) {
	// Newest run per PR only: superseded runs stay as history but must not
	// resurrect groups from stale heads.
	var rows []edgeRow
	query := s.db.Rebind(`
		SELECT e.* FROM scored_edges e
		JOIN analysis_runs r ON r.id = e.run_id
		JOIN (
			SELECT repo_id, pr_number, MAX(completed_at) AS latest
			FROM analysis_runs WHERE repo_id = ? GROUP BY repo_id, pr_number
		) newest ON newest.repo_id = r.repo_id AND newest.pr_number = r.pr_number
			AND newest.latest = r.completed_at
		WHERE e.final_score >= ?
		ORDER BY e.final_score DESC`)
	if err := s.db.SelectContext(ctx, &rows, query, repoID, minScore); err != nil {
		return nil, fmt.Errorf("list edges above %.2f for %s: %w", minScore, repoID, err)
	}
	return rowsToEdges(rows)
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func rowToRun(row *runRow) (*models.AnalysisRun, error) {
	run := &models.AnalysisRun{
		ID:               row.ID,
		RepoID:           row.RepoID,
		PRNumber:         row.PRNumber,
		HeadSHA:          row.HeadSHA,
		SignatureVersion: row.SignatureVersion,
		AlgorithmVersion: row.AlgorithmVersion,
		ConfigVersion:    row.ConfigVersion,
		CandidateCount:   row.CandidateCount,
		EdgeCount:        row.EdgeCount,
		StartedAt:        row.StartedAt,
		CompletedAt:      row.CompletedAt,
	}
	if len(row.DegradedReasons) > 0 {
		if err := json.Unmarshal(row.DegradedReasons, &run.DegradedReasons); err != nil {
			return nil, fmt.Errorf("unmarshal degraded reasons: %w", err)
		}
	}
	return run, nil
}

func rowsToEdges(rows []edgeRow) ([]*models.ScoredEdge, error) {
	edges := make([]*models.ScoredEdge, 0, len(rows))
	for _, row := range rows {
		edge := &models.ScoredEdge{
			RunID:      row.RunID,
			RepoID:     row.RepoID,
			PRNumber:   row.PRNumber,
			HeadSHA:    row.HeadSHA,
			OtherPR:    row.OtherPR,
			OtherSHA:   row.OtherSHA,
			Category:   models.Category(row.Category),
			FinalScore: row.FinalScore,
		}
		if err := json.Unmarshal(row.Provenance, &edge.Provenance); err != nil {
			return nil, fmt.Errorf("unmarshal provenance: %w", err)
		}
		if err := json.Unmarshal(row.Signals, &edge.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
		if err := json.Unmarshal(row.Evidence, &edge.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func marshalPayload(sig *models.ChannelSignature) ([]byte, error) {
	var v any
	switch sig.Channel {
	case models.ChannelProduction:
		v = sig.Production
	case models.ChannelTests:
		v = sig.Tests
	case models.ChannelDocs:
		v = sig.Docs
	default:
		v = nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", sig.Channel, err)
	}
	return data, nil
}

func unmarshalPayload(sig *models.ChannelSignature, data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var target any
	switch sig.Channel {
	case models.ChannelProduction:
		sig.Production = &models.ProductionPayload{}
		target = sig.Production
	case models.ChannelTests:
		sig.Tests = &models.TestsPayload{}
		target = sig.Tests
	case models.ChannelDocs:
		sig.Docs = &models.DocsPayload{}
		target = sig.Docs
	default:
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", sig.Channel, err)
	}
	return nil
}
