package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dupehound/dupehound/internal/models"
)

// Bucket names, one per retrieval strategy.
var (
	boltExact   = []byte("exact_hash")
	boltLSH     = []byte("lsh_buckets")
	boltPaths   = []byte("paths")
	boltSymbols = []byte("symbols")
)

// BoltIndex is the local single-file index backend. Values are JSON maps of
// member → expiry unix seconds (0 = no expiry); expired members are dropped
// lazily on read.
type BoltIndex struct {
	db        *bolt.DB
	bucketTTL time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewBoltIndex opens (or creates) the index file.
func NewBoltIndex(path string, bucketTTL time.Duration, logger *slog.Logger) (*BoltIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{boltExact, boltLSH, boltPaths, boltSymbols} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init index buckets: %w", err)
	}

	return &BoltIndex{
		db:        db,
		bucketTTL: bucketTTL,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (b *BoltIndex) AddExactHash(ctx context.Context, repo string, sigVersion int, hash string, head models.PRHead) error {
	return b.insert(boltExact, []string{hashKey(repo, sigVersion, hash)}, head, 0)
}

func (b *BoltIndex) LookupExactHash(ctx context.Context, repo string, sigVersion int, hash string) ([]models.PRHead, error) {
	return b.lookup(boltExact, []string{hashKey(repo, sigVersion, hash)})
}

func (b *BoltIndex) AddBuckets(ctx context.Context, repo string, sigVersion int, bucketIDs []string, head models.PRHead) error {
	keys := make([]string, len(bucketIDs))
	for i, id := range bucketIDs {
		keys[i] = bucketKey(repo, sigVersion, id)
	}
	return b.insert(boltLSH, keys, head, b.bucketTTL)
}

func (b *BoltIndex) LookupBuckets(ctx context.Context, repo string, sigVersion int, bucketIDs []string) ([]models.PRHead, error) {
	keys := make([]string, len(bucketIDs))
	for i, id := range bucketIDs {
		keys[i] = bucketKey(repo, sigVersion, id)
	}
	return b.lookup(boltLSH, keys)
}

func (b *BoltIndex) AddPaths(ctx context.Context, repo string, paths []string, head models.PRHead) error {
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = pathKey(repo, p)
	}
	return b.insert(boltPaths, keys, head, 0)
}

func (b *BoltIndex) LookupPaths(ctx context.Context, repo string, paths []string) ([]models.PRHead, error) {
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = pathKey(repo, p)
	}
	return b.lookup(boltPaths, keys)
}

func (b *BoltIndex) AddSymbols(ctx context.Context, repo string, symbols []string, head models.PRHead) error {
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = symbolKey(repo, s)
	}
	return b.insert(boltSymbols, keys, head, 0)
}

func (b *BoltIndex) LookupSymbols(ctx context.Context, repo string, symbols []string) ([]models.PRHead, error) {
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = symbolKey(repo, s)
	}
	return b.lookup(boltSymbols, keys)
}

// Close closes the underlying database.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}

// insert adds head to every key's member set. Re-inserting an existing
// member refreshes its expiry, which makes the write safe to repeat.
func (b *BoltIndex) insert(bucket []byte, keys []string, head models.PRHead, ttl time.Duration) error {
	if len(keys) == 0 {
		return nil
	}

	var expiry int64
	if ttl > 0 {
		expiry = b.now().Add(ttl).Unix()
	}
	member := encodeMember(head)

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		for _, key := range keys {
			members, err := readMembers(bkt.Get([]byte(key)))
			if err != nil {
				return fmt.Errorf("decode members for %s: %w", key, err)
			}
			members[member] = expiry

			data, err := json.Marshal(members)
			if err != nil {
				return err
			}
			if err := bkt.Put([]byte(key), data); err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
		}
		return nil
	})
}

func (b *BoltIndex) lookup(bucket []byte, keys []string) ([]models.PRHead, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	now := b.now().Unix()
	var heads []models.PRHead

	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		for _, key := range keys {
			members, err := readMembers(bkt.Get([]byte(key)))
			if err != nil {
				return fmt.Errorf("decode members for %s: %w", key, err)
			}
			for m, expiry := range members {
				if expiry != 0 && expiry < now {
					continue
				}
				if head, ok := decodeMember(m); ok {
					heads = append(heads, head)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dedupeHeads(heads), nil
}

func readMembers(data []byte) (map[string]int64, error) {
	members := make(map[string]int64)
	if len(data) == 0 {
		return members, nil
	}
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}
