// Package minhash computes fixed-size MinHash signatures over shingle sets
// and derives LSH bucket ids from them. Everything here is deterministic:
// the same shingle set yields the same signature in every process on every
// host, which is what keeps bucket membership stable across ingests.
package minhash

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/fnv"

	"github.com/dupehound/dupehound/internal/errors"
)

const (
	// SignatureSize is the number of hash slots per signature.
	SignatureSize = 128

	// BandSize is the LSH band width. 128/8 = 16 bands per signature.
	BandSize = 8

	// EmptySlot fills every position of the empty-set sentinel signature.
	EmptySlot = 0xFFFFFFFF

	// seedBase is the fixed starting constant for seed derivation. Changing
	// it invalidates every stored signature; treat as a SignatureVersion bump.
	seedBase uint64 = 0x9E3779B97F4A7C15
)

// Engine holds the immutable seed table. Construct once at startup and pass
// explicitly; there is no package-level state.
type Engine struct {
	seeds []uint32
}

// New derives the seed table from the fixed constant via a splitmix64 walk.
func New() *Engine {
	seeds := make([]uint32, SignatureSize)
	state := seedBase
	for i := range seeds {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z ^= z >> 31
		seeds[i] = uint32(z)
	}
	return &Engine{seeds: seeds}
}

// ComputeSignature computes the MinHash signature of a shingle set. For each
// shingle it hashes once (FNV-1a) and derives the per-slot value as
// mix(base XOR seed), keeping the minimum per slot. An empty set yields the
// all-EmptySlot sentinel, a stable "no signal" value, never an error.
func (e *Engine) ComputeSignature(shingles map[string]struct{}) []uint32 {
	sig := make([]uint32, SignatureSize)
	for i := range sig {
		sig[i] = EmptySlot
	}

	for shingle := range shingles {
		h := fnv.New32a()
		h.Write([]byte(shingle))
		base := h.Sum32()

		for i, seed := range e.seeds {
			v := mix(base ^ seed)
			if v < sig[i] {
				sig[i] = v
			}
		}
	}

	return sig
}

// Similarity estimates Jaccard similarity as the fraction of matching
// positions between two signatures. Differing lengths are a programming
// invariant violation, not a scoring condition.
func (e *Engine) Similarity(a, b []uint32) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Internalf("signature length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, errors.Internalf("empty signature")
	}

	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a)), nil
}

// IsEmpty reports whether sig is the empty-set sentinel. Sentinel signatures
// must never be bucketed or looked up: every empty diff would otherwise
// land in the same buckets and match every other empty diff.
func IsEmpty(sig []uint32) bool {
	for _, v := range sig {
		if v != EmptySlot {
			return false
		}
	}
	return true
}

// BucketIDs partitions the signature into bands of BandSize consecutive
// values and hashes each band into one bucket id, prefixed with the band
// index so identical band values at different positions never collide.
// Two PR heads sharing any bucket id are LSH near-duplicate candidates.
func (e *Engine) BucketIDs(sig []uint32) ([]string, error) {
	if len(sig) == 0 || len(sig)%BandSize != 0 {
		return nil, errors.Internalf("signature length %d not divisible by band size %d", len(sig), BandSize)
	}

	bands := len(sig) / BandSize
	ids := make([]string, 0, bands)
	buf := make([]byte, BandSize*4)

	for band := 0; band < bands; band++ {
		for i := 0; i < BandSize; i++ {
			binary.BigEndian.PutUint32(buf[i*4:], sig[band*BandSize+i])
		}
		sum := sha1.Sum(buf)
		ids = append(ids, fmt.Sprintf("%d:%s", band, hex.EncodeToString(sum[:8])))
	}

	return ids, nil
}

// mix is the murmur3 finalizer: a cheap avalanche over base XOR seed that
// makes the per-slot hash functions behave independently.
func mix(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85EBCA6B
	h ^= h >> 13
	h *= 0xC2B2AE35
	h ^= h >> 16
	return h
}
