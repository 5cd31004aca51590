// Package engine orchestrates one PR head's analysis pass: classify files
// into channels, extract and fingerprint per channel, write index
// memberships, retrieve candidates, score each pair, and persist the run.
// The engine holds no mutable state between calls; it is safe to share
// across concurrent workers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dupehound/dupehound/internal/candidates"
	"github.com/dupehound/dupehound/internal/canonical"
	"github.com/dupehound/dupehound/internal/classifier"
	"github.com/dupehound/dupehound/internal/config"
	"github.com/dupehound/dupehound/internal/errors"
	"github.com/dupehound/dupehound/internal/evidence"
	"github.com/dupehound/dupehound/internal/extract"
	"github.com/dupehound/dupehound/internal/index"
	"github.com/dupehound/dupehound/internal/minhash"
	"github.com/dupehound/dupehound/internal/models"
	"github.com/dupehound/dupehound/internal/scoring"
	"github.com/dupehound/dupehound/internal/shingle"
	"github.com/dupehound/dupehound/internal/storage"
)

// Engine wires the pure components to the storage collaborators. All fields
// are read-only after construction.
type Engine struct {
	classifier *classifier.Classifier
	extractor  extract.ProductionSignalExtractor
	mh         *minhash.Engine
	scorer     *scoring.Scorer
	evidence   *evidence.Builder
	generator  *candidates.Generator
	idx        index.Index
	store      storage.Store
	thresholds *config.Thresholds
	logger     *slog.Logger
}

// New assembles an engine from loaded, validated configuration.
func New(rules *config.ClassificationRules, thresholds *config.Thresholds, idx index.Index, store storage.Store, logger *slog.Logger) (*Engine, error) {
	cls, err := classifier.New(rules)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "compile classification rules")
	}

	mh := minhash.New()
	return &Engine{
		classifier: cls,
		extractor:  extract.NewRegexExtractor(),
		mh:         mh,
		scorer:     scoring.New(mh, thresholds),
		evidence:   evidence.New(thresholds.Evidence.MaxItems),
		generator:  candidates.New(idx, store, thresholds.Candidates.MaxTotal, thresholds.Candidates.MaxPerStrategy, logger),
		idx:        idx,
		store:      store,
		thresholds: thresholds,
		logger:     logger,
	}, nil
}

// SignResult is the fingerprint of one PR head across all channels.
type SignResult struct {
	Production *models.ChannelSignature
	Tests      *models.ChannelSignature
	Docs       *models.ChannelSignature

	// BucketIDs is nil when the production shingle set is empty, so the
	// sentinel signature is never bucketed.
	BucketIDs []string

	// DegradedReasons lists files whose extraction was skipped.
	DegradedReasons []string
}

// pairInput adapts a SignResult for the scorer.
func (r *SignResult) pairInput() *scoring.PairInput {
	return &scoring.PairInput{Production: r.Production, Tests: r.Tests, Docs: r.Docs}
}

// Sign computes the channel signatures for a PR head. Pure: identical input
// yields an identical result, which is what keeps exact-hash matching and
// LSH bucket membership stable across ingests.
func (e *Engine) Sign(pr *models.PullRequest, files []models.ChangedFile) (*SignResult, error) {
	result := &SignResult{}

	byChannel := make(map[models.Channel][]models.ChangedFile)
	for _, f := range files {
		f.Channel = e.classifier.ClassifyFile(&f)
		if f.Patch == "" && f.Status != models.FileRemoved {
			result.DegradedReasons = append(result.DegradedReasons,
				fmt.Sprintf("missing patch for %s, extraction skipped", f.Path))
		}
		byChannel[f.Channel] = append(byChannel[f.Channel], f)
	}
	// Meta files carry no similarity signal and are dropped here; their
	// only job was to stay out of the other channels.

	for _, channelFiles := range byChannel {
		sort.Slice(channelFiles, func(i, j int) bool {
			return channelFiles[i].Path < channelFiles[j].Path
		})
	}

	var err error
	result.Production, result.BucketIDs, err = e.signProduction(pr, byChannel[models.ChannelProduction])
	if err != nil {
		return nil, err
	}
	result.Tests = e.signTests(pr, byChannel[models.ChannelTests])
	result.Docs = e.signDocs(pr, byChannel[models.ChannelDocs])

	return result, nil
}

func (e *Engine) signProduction(pr *models.PullRequest, files []models.ChangedFile) (*models.ChannelSignature, []string, error) {
	var lines []string
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
		lines = append(lines, canonical.ChangedLines(f.Patch)...)
	}

	payload := e.extractor.ExtractProduction(lines)
	payload.Paths = paths // already sorted by Sign

	shingles := shingle.Shingles(shingle.TokenizeLines(lines), shingle.KCode)
	sig := e.newSignature(pr, models.ChannelProduction)
	sig.Production = payload
	sig.MinHash = e.mh.ComputeSignature(shingles)
	sig.ShingleCount = len(shingles)

	// No hash for an empty production diff: it must never exact-match.
	_, sig.CanonicalHash = canonical.Canonicalize(files)

	var bucketIDs []string
	if len(shingles) > 0 {
		var err error
		bucketIDs, err = e.mh.BucketIDs(sig.MinHash)
		if err != nil {
			return nil, nil, err
		}
	}

	return sig, bucketIDs, nil
}

func (e *Engine) signTests(pr *models.PullRequest, files []models.ChangedFile) *models.ChannelSignature {
	var lines []string
	for _, f := range files {
		lines = append(lines, canonical.ChangedLines(f.Patch)...)
	}

	payload := extract.ExtractTests(lines)
	shingles := shingle.Shingles(extract.TestTokens(payload), shingle.KNames)

	sig := e.newSignature(pr, models.ChannelTests)
	sig.Tests = payload
	sig.MinHash = e.mh.ComputeSignature(shingles)
	sig.ShingleCount = len(shingles)
	return sig
}

func (e *Engine) signDocs(pr *models.PullRequest, files []models.ChangedFile) *models.ChannelSignature {
	var lines []string
	for _, f := range files {
		lines = append(lines, canonical.ChangedLines(f.Patch)...)
	}

	payload := extract.ExtractDocs(lines)
	shingles := shingle.Shingles(extract.DocTokens(payload), shingle.KNames)

	sig := e.newSignature(pr, models.ChannelDocs)
	sig.Docs = payload
	sig.MinHash = e.mh.ComputeSignature(shingles)
	sig.ShingleCount = len(shingles)
	return sig
}

func (e *Engine) newSignature(pr *models.PullRequest, channel models.Channel) *models.ChannelSignature {
	return &models.ChannelSignature{
		RepoID:           pr.RepoID,
		PRNumber:         pr.Number,
		HeadSHA:          pr.HeadSHA,
		Channel:          channel,
		SignatureVersion: models.SignatureVersion,
	}
}

// Ingest persists the PR, its signatures, and its index memberships.
// Every write is an upsert or set-insert, so overlapping retries for the
// same head are safe without coordination.
func (e *Engine) Ingest(ctx context.Context, pr *models.PullRequest, files []models.ChangedFile) (*SignResult, error) {
	result, err := e.Sign(pr, files)
	if err != nil {
		return nil, err
	}

	if err := e.store.SavePullRequest(ctx, pr); err != nil {
		return nil, errors.Storagef(err, "save pull request")
	}
	for _, sig := range []*models.ChannelSignature{result.Production, result.Tests, result.Docs} {
		if err := e.store.SaveSignature(ctx, sig); err != nil {
			return nil, errors.Storagef(err, "save %s signature", sig.Channel)
		}
	}

	head := models.PRHead{Number: pr.Number, HeadSHA: pr.HeadSHA}
	repo := pr.RepoID
	prod := result.Production

	if prod.CanonicalHash != "" {
		if err := e.idx.AddExactHash(ctx, repo, models.SignatureVersion, prod.CanonicalHash, head); err != nil {
			return nil, errors.Storagef(err, "index canonical hash")
		}
	}
	if len(result.BucketIDs) > 0 {
		if err := e.idx.AddBuckets(ctx, repo, models.SignatureVersion, result.BucketIDs, head); err != nil {
			return nil, errors.Storagef(err, "index lsh buckets")
		}
	}
	if err := e.idx.AddPaths(ctx, repo, prod.Production.Paths, head); err != nil {
		return nil, errors.Storagef(err, "index paths")
	}
	if err := e.idx.AddSymbols(ctx, repo, symbolUnion(prod.Production), head); err != nil {
		return nil, errors.Storagef(err, "index symbols")
	}

	return result, nil
}

// Analyze runs the full pass for one PR head and persists the run with its
// scored edges, ranked by final score.
func (e *Engine) Analyze(ctx context.Context, pr *models.PullRequest, files []models.ChangedFile) (*models.AnalysisRun, []*models.ScoredEdge, error) {
	startedAt := time.Now().UTC()

	result, err := e.Ingest(ctx, pr, files)
	if err != nil {
		return nil, nil, err
	}

	run := &models.AnalysisRun{
		ID:               uuid.NewString(),
		RepoID:           pr.RepoID,
		PRNumber:         pr.Number,
		HeadSHA:          pr.HeadSHA,
		SignatureVersion: models.SignatureVersion,
		AlgorithmVersion: models.AlgorithmVersion,
		ConfigVersion:    e.thresholds.Version,
		DegradedReasons:  result.DegradedReasons,
		StartedAt:        startedAt,
	}

	target := &candidates.Target{
		RepoID:           pr.RepoID,
		Head:             models.PRHead{Number: pr.Number, HeadSHA: pr.HeadSHA},
		SignatureVersion: models.SignatureVersion,
		CanonicalHash:    result.Production.CanonicalHash,
		BucketIDs:        result.BucketIDs,
		Paths:            result.Production.Production.Paths,
		Symbols:          symbolUnion(result.Production.Production),
	}

	found, err := e.generator.Generate(ctx, target)
	if err != nil {
		return nil, nil, errors.Storagef(err, "candidate retrieval")
	}
	run.CandidateCount = len(found)

	targetInput := result.pairInput()
	edges := make([]*models.ScoredEdge, 0, len(found))
	for _, cand := range found {
		candInput, complete, reason := e.loadPair(ctx, pr.RepoID, cand)
		if reason != "" {
			run.DegradedReasons = append(run.DegradedReasons, reason)
		}

		scored, err := e.scorer.Score(targetInput, candInput, complete)
		if err != nil {
			return nil, nil, err
		}

		edges = append(edges, &models.ScoredEdge{
			RunID:      run.ID,
			RepoID:     pr.RepoID,
			PRNumber:   pr.Number,
			HeadSHA:    pr.HeadSHA,
			OtherPR:    cand.PRNumber,
			OtherSHA:   cand.HeadSHA,
			Provenance: cand.Provenance,
			Signals:    scored.Signals,
			Category:   scored.Category,
			FinalScore: scored.FinalScore,
			Evidence:   e.evidence.Build(targetInput, candInput, scored.Signals),
		})
	}

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].FinalScore > edges[j].FinalScore
	})

	run.EdgeCount = len(edges)
	run.CompletedAt = time.Now().UTC()

	if err := e.store.SaveAnalysisRun(ctx, run, edges); err != nil {
		return nil, nil, errors.Storagef(err, "save analysis run")
	}

	e.logger.Info("analysis complete",
		"repo", pr.RepoID, "pr", pr.Number, "head", pr.HeadSHA,
		"candidates", run.CandidateCount, "edges", run.EdgeCount,
		"degraded", run.Degraded())

	return run, edges, nil
}

// loadPair reads a candidate's stored signatures. A missing production
// signature means scoring would run on missing data: the pair still scores
// over what exists, but the verdict degrades to UNCERTAIN.
func (e *Engine) loadPair(ctx context.Context, repo string, cand models.Candidate) (*scoring.PairInput, bool, string) {
	input := &scoring.PairInput{}
	complete := true
	var reason string

	load := func(channel models.Channel) *models.ChannelSignature {
		sig, err := e.store.GetSignature(ctx, repo, cand.PRNumber, cand.HeadSHA, channel, models.SignatureVersion)
		if err != nil {
			if err != storage.ErrNotFound {
				e.logger.Warn("signature load failed", "pr", cand.PRNumber, "channel", channel, "error", err)
			}
			return nil
		}
		return sig
	}

	input.Production = load(models.ChannelProduction)
	input.Tests = load(models.ChannelTests)
	input.Docs = load(models.ChannelDocs)

	if input.Production == nil {
		complete = false
		reason = fmt.Sprintf("production signature unavailable for candidate #%d", cand.PRNumber)
	}

	return input, complete, reason
}

// symbolUnion merges the three name sets for the symbol-overlap index.
func symbolUnion(p *models.ProductionPayload) []string {
	set := make(map[string]struct{}, len(p.Exports)+len(p.Symbols)+len(p.Imports))
	for _, s := range p.Exports {
		set[s] = struct{}{}
	}
	for _, s := range p.Symbols {
		set[s] = struct{}{}
	}
	for _, s := range p.Imports {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
