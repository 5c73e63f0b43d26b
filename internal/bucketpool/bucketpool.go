// Package bucketpool owns the hash table's fixed-size bucket array, per
// spec §4.F and original_source/src/keystore/core/keystore.c's
// table-initialization routine.
package bucketpool

import (
	"github.com/calvinalkan/latchkv/internal/blockpool"
	"github.com/calvinalkan/latchkv/internal/bucket"
	"github.com/calvinalkan/latchkv/internal/chain"
	"github.com/calvinalkan/latchkv/internal/errs"
)

// Pool is the fixed-size array of buckets backing the table. bucketCount
// is always a power of two so the engine can mask a fingerprint into an
// index instead of dividing.
type Pool struct {
	buckets    []bucket.Bucket
	mask       uint32
	concurrent bool
}

// New allocates bucketCount buckets. bucketCount must be a power of two;
// any other value fails InvalidConfiguration before any bucket is touched,
// mirroring the original table-init routine's all-or-nothing contract.
//
// When concurrent is true every bucket is initialized eagerly, so its RW
// lock is "ready" before any concurrent caller can reach it (constructing
// a zero-value sync.RWMutex needs no work, but the Initialized/Kind state
// machine still follows spec §4.F's eager-on-concurrency rule). When
// concurrent is false, buckets initialize lazily on first Get — safe only
// because single-threaded mode never races that lazy init against itself.
func New(bucketCount uint32, concurrent bool) (*Pool, error) {
	if bucketCount == 0 || bucketCount&(bucketCount-1) != 0 {
		return nil, errs.ErrInvalidConfiguration
	}

	buckets := make([]bucket.Bucket, bucketCount)

	if concurrent {
		for i := range buckets {
			buckets[i].Init()
		}
	}

	return &Pool{
		buckets:    buckets,
		mask:       bucketCount - 1,
		concurrent: concurrent,
	}, nil
}

// Get returns the bucket owning fingerprint, selected by masking the
// fingerprint against the table size, lazily initializing it if this pool
// was constructed in single-threaded mode. InvalidIndex should be
// unreachable for any uint32 fingerprint given a valid mask, but the bound
// is checked defensively since bucket access is the hottest path in the
// store.
func (p *Pool) Get(fingerprint uint32) (*bucket.Bucket, error) {
	idx := fingerprint & p.mask
	if int(idx) >= len(p.buckets) {
		return nil, errs.ErrInvalidIndex
	}

	b := &p.buckets[idx]

	if !p.concurrent && !b.Initialized {
		b.Init()
	}

	return b, nil
}

// Count is the fixed number of buckets in the table.
func (p *Pool) Count() int {
	return len(p.buckets)
}

// Cleanup tears down every bucket's chain, returning their nodes to pool.
// Safe to call more than once.
func (p *Pool) Cleanup(pool *blockpool.Pool[chain.Node]) {
	for i := range p.buckets {
		b := &p.buckets[i]
		if !b.Initialized {
			continue
		}

		b.Lock()
		b.Teardown(pool)
		b.Unlock()
	}
}

// Buckets exposes the underlying slice for lock-free diagnostic scans
// (e.g. stats collection, which reads bucket shape without taking any
// lock — see spec §4.H).
func (p *Pool) Buckets() []bucket.Bucket {
	return p.buckets
}
