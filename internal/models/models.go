package models

import (
	"time"
)

// SignatureVersion identifies the tokenization/normalization generation.
// Bump whenever shingling or canonicalization changes: signatures produced
// under different versions are not comparable and must never cross-match.
const SignatureVersion = 1

// AlgorithmVersion identifies the candidate retrieval + scoring generation.
const AlgorithmVersion = 1

// Channel is the classification bucket every changed file is sorted into
// before any similarity is computed.
type Channel string

const (
	ChannelProduction Channel = "production"
	ChannelTests      Channel = "tests"
	ChannelDocs       Channel = "docs"
	ChannelMeta       Channel = "meta"
)

// Channels lists all valid channels in classifier precedence order
// (meta wins over tests wins over docs; production is the fallback).
var Channels = []Channel{ChannelMeta, ChannelTests, ChannelDocs, ChannelProduction}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelProduction, ChannelTests, ChannelDocs, ChannelMeta:
		return true
	}
	return false
}

// FileStatus mirrors the change status reported by the hosting API.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileRemoved  FileStatus = "removed"
	FileRenamed  FileStatus = "renamed"
)

// ChangedFile is one file of a PR head revision. Immutable once classified;
// a new head revision produces a fresh set rather than mutating this one.
type ChangedFile struct {
	Path         string     `json:"path"`
	PreviousPath string     `json:"previous_path,omitempty"` // set for renames
	Status       FileStatus `json:"status"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	Patch        string     `json:"patch,omitempty"` // unified diff; may be absent or truncated
	Channel      Channel    `json:"channel,omitempty"`
}

// PullRequest holds the slice of PR metadata the engine needs.
type PullRequest struct {
	RepoID    string    `json:"repo_id" db:"repo_id"` // "owner/name"
	Number    int       `json:"number" db:"number"`
	HeadSHA   string    `json:"head_sha" db:"head_sha"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	State     string    `json:"state" db:"state"` // "open", "closed"
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PRHead identifies one analyzed revision of one PR.
type PRHead struct {
	Number  int    `json:"number"`
	HeadSHA string `json:"head_sha"`
}

// ProductionPayload is the structured signal extracted from production files.
// All slices are deduplicated and lexicographically sorted so that payloads
// are deterministic and directly comparable.
type ProductionPayload struct {
	Paths   []string `json:"paths"`
	Exports []string `json:"exports"`
	Symbols []string `json:"symbols"`
	Imports []string `json:"imports"`
}

// TestsPayload is the test-intent signal: what the tests claim to verify.
type TestsPayload struct {
	Suites   []string `json:"suites"`
	Tests    []string `json:"tests"`
	Matchers []string `json:"matchers"`
	Imports  []string `json:"imports"` // modules under test, framework modules excluded
}

// DocsPayload is the documentation-structure signal.
type DocsPayload struct {
	Headings   []string `json:"headings"`
	FenceLangs []string `json:"fence_langs"`
	Refs       []string `json:"refs"` // "#123" issue/PR references
}

// ChannelSignature is one fingerprint per (PR, head, channel, signature version).
// It is a pure function of the channel's file set and patch content at that
// revision: recomputing on identical input yields an identical signature.
type ChannelSignature struct {
	RepoID           string  `json:"repo_id" db:"repo_id"`
	PRNumber         int     `json:"pr_number" db:"pr_number"`
	HeadSHA          string  `json:"head_sha" db:"head_sha"`
	Channel          Channel `json:"channel" db:"channel"`
	SignatureVersion int     `json:"signature_version" db:"signature_version"`

	// CanonicalHash is set for the production channel only, and only when the
	// channel has at least one added/removed diff line.
	CanonicalHash string `json:"canonical_hash,omitempty" db:"canonical_hash"`

	MinHash      []uint32 `json:"minhash"`
	ShingleCount int      `json:"shingle_count" db:"shingle_count"`

	// Exactly one of the payloads below is set, matching Channel.
	Production *ProductionPayload `json:"production,omitempty"`
	Tests      *TestsPayload      `json:"tests,omitempty"`
	Docs       *DocsPayload       `json:"docs,omitempty"`
}

// RetrievalSource records why a candidate was retrieved.
type RetrievalSource string

const (
	SourceExactHash     RetrievalSource = "exact_hash"
	SourceLSHBucket     RetrievalSource = "lsh_bucket"
	SourcePathOverlap   RetrievalSource = "path_overlap"
	SourceSymbolOverlap RetrievalSource = "symbol_overlap"
)

// Candidate is a transient retrieval result: one open PR head plus the
// provenance of every strategy that surfaced it.
type Candidate struct {
	PRNumber   int               `json:"pr_number"`
	HeadSHA    string            `json:"head_sha"`
	Provenance []RetrievalSource `json:"provenance"`
}

// Category is the verdict assigned to a scored pair.
type Category string

const (
	CategorySameChange  Category = "SAME_CHANGE"
	CategorySameFeature Category = "SAME_FEATURE"
	CategoryCompeting   Category = "COMPETING_IMPLEMENTATION"
	CategoryRelated     Category = "RELATED"
	CategoryNotRelated  Category = "NOT_RELATED"
	CategoryUncertain   Category = "UNCERTAIN"
)

// SignalSet holds the eight per-pair similarity values, each in [0,1].
type SignalSet struct {
	ExactHash   float64 `json:"exact_hash"` // 0 or 1
	ProdMinhash float64 `json:"prod_minhash"`
	ProdPaths   float64 `json:"prod_paths"`
	ProdExports float64 `json:"prod_exports"`
	ProdSymbols float64 `json:"prod_symbols"`
	ProdImports float64 `json:"prod_imports"`
	TestsIntent float64 `json:"tests_intent"`
	DocsStruct  float64 `json:"docs_struct"`
}

// Evidence is the mandatory human-inspectable justification attached to
// every surfaced edge. Each list is truncated to a configured cap.
type Evidence struct {
	Paths    []string  `json:"paths,omitempty"`
	Exports  []string  `json:"exports,omitempty"`
	Symbols  []string  `json:"symbols,omitempty"`
	Imports  []string  `json:"imports,omitempty"`
	Suites   []string  `json:"suites,omitempty"`
	Tests    []string  `json:"tests,omitempty"`
	Matchers []string  `json:"matchers,omitempty"`
	Headings []string  `json:"headings,omitempty"`
	Fences   []string  `json:"fences,omitempty"`
	Signals  SignalSet `json:"signals"`
}

// Empty reports whether the bundle carries no overlap lists at all.
func (e *Evidence) Empty() bool {
	return len(e.Paths) == 0 && len(e.Exports) == 0 && len(e.Symbols) == 0 &&
		len(e.Imports) == 0 && len(e.Suites) == 0 && len(e.Tests) == 0 &&
		len(e.Matchers) == 0 && len(e.Headings) == 0 && len(e.Fences) == 0
}

// ScoredEdge links the analyzed PR to one candidate with its verdict.
// Produced fresh per analysis run and never mutated; the next run for the
// same PR head supersedes it entirely.
type ScoredEdge struct {
	RunID      string            `json:"run_id" db:"run_id"`
	RepoID     string            `json:"repo_id" db:"repo_id"`
	PRNumber   int               `json:"pr_number" db:"pr_number"`
	HeadSHA    string            `json:"head_sha" db:"head_sha"`
	OtherPR    int               `json:"other_pr" db:"other_pr"`
	OtherSHA   string            `json:"other_sha" db:"other_sha"`
	Provenance []RetrievalSource `json:"provenance"`
	Signals    SignalSet         `json:"signals"`
	Category   Category          `json:"category" db:"category"`
	FinalScore float64           `json:"final_score" db:"final_score"`
	Evidence   Evidence          `json:"evidence"`
}

// AnalysisRun groups one PR head's full candidate search and scoring pass.
// The three version fields make every historical result reproducible even
// as weights and rules evolve.
type AnalysisRun struct {
	ID               string    `json:"id" db:"id"`
	RepoID           string    `json:"repo_id" db:"repo_id"`
	PRNumber         int       `json:"pr_number" db:"pr_number"`
	HeadSHA          string    `json:"head_sha" db:"head_sha"`
	SignatureVersion int       `json:"signature_version" db:"signature_version"`
	AlgorithmVersion int       `json:"algorithm_version" db:"algorithm_version"`
	ConfigVersion    string    `json:"config_version" db:"config_version"`
	CandidateCount   int       `json:"candidate_count" db:"candidate_count"`
	EdgeCount        int       `json:"edge_count" db:"edge_count"`
	DegradedReasons  []string  `json:"degraded_reasons,omitempty"`
	StartedAt        time.Time `json:"started_at" db:"started_at"`
	CompletedAt      time.Time `json:"completed_at" db:"completed_at"`
}

// Degraded reports whether the run completed with reduced confidence.
func (r *AnalysisRun) Degraded() bool {
	return len(r.DegradedReasons) > 0
}

// DuplicateGroup is a read-time view: a connected set of PR heads whose
// pairwise edges cleared the grouping threshold.
type DuplicateGroup struct {
	Members []PRHead `json:"members"`
}
