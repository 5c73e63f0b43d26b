// Package engine is the operation core: the code path that turns a key
// into a fingerprint, a fingerprint into a bucket, and a bucket into a
// locked traversal of its chain. Grounded on spec §4.G and
// original_source/src/keystore/core/keystore.c's set/get/delete routines.
package engine

import (
	"github.com/calvinalkan/latchkv/internal/blockpool"
	"github.com/calvinalkan/latchkv/internal/bucket"
	"github.com/calvinalkan/latchkv/internal/bucketpool"
	"github.com/calvinalkan/latchkv/internal/cell"
	"github.com/calvinalkan/latchkv/internal/chain"
	"github.com/calvinalkan/latchkv/internal/errs"
	"github.com/calvinalkan/latchkv/internal/hash"
	"github.com/calvinalkan/latchkv/internal/metrics"
)

// Engine ties the bucket pool, the chain-node block pool, the hash seed
// and the shared counters together behind Set/Get/Delete. The reserved
// tree-node pool is allocated but never drawn from: bucket.Tree is a
// closed discriminator value with no writer in this version, matching
// spec §4.E's "no dynamic upgrade" contract.
type Engine struct {
	buckets    *bucketpool.Pool
	nodes      *blockpool.Pool[chain.Node]
	trees      *blockpool.Pool[chain.Node]
	seed       uint32
	concurrent bool
	metrics    *metrics.Counters
}

// New wires an already-constructed bucket pool and chain-node pools into
// an Engine. trees is accepted but unused, preserving the reserved
// tree-node allocation the original format always performs.
func New(buckets *bucketpool.Pool, nodes, trees *blockpool.Pool[chain.Node], seed uint32, concurrent bool, m *metrics.Counters) *Engine {
	return &Engine{
		buckets:    buckets,
		nodes:      nodes,
		trees:      trees,
		seed:       seed,
		concurrent: concurrent,
		metrics:    m,
	}
}

func (e *Engine) lockBucketWrite(b *bucket.Bucket) {
	if e.concurrent {
		b.Lock()
	}
}

func (e *Engine) unlockBucketWrite(b *bucket.Bucket) {
	if e.concurrent {
		b.Unlock()
	}
}

func (e *Engine) lockBucketRead(b *bucket.Bucket) {
	if e.concurrent {
		b.RLock()
	}
}

func (e *Engine) unlockBucketRead(b *bucket.Bucket) {
	if e.concurrent {
		b.RUnlock()
	}
}

func (e *Engine) locateBucket(key []byte) (*bucket.Bucket, uint32, error) {
	if len(key) == 0 {
		return nil, 0, errs.ErrInvalidArgument
	}

	fp := hash.Fingerprint(key, e.seed)
	if fp == hash.Invalid {
		return nil, 0, errs.ErrHashFunctionFailed
	}

	b, err := e.buckets.Get(fp)
	if err != nil {
		return nil, 0, err
	}

	return b, fp, nil
}

// Set performs an upsert: find-then-insert-or-update under a single
// bucket write-lock scope, per spec §4.G/§5. value must be non-nil; a
// zero-length value is a valid store.
func (e *Engine) Set(key, value []byte) error {
	b, fp, err := e.locateBucket(key)
	if err != nil {
		e.metrics.Record(metrics.OpAdd, int(code(err)))

		return err
	}

	if value == nil {
		e.metrics.Record(metrics.OpAdd, int(errs.InvalidArgument))

		return errs.ErrInvalidArgument
	}

	e.lockBucketWrite(b)
	defer e.unlockBucketWrite(b)

	if n := chain.Find(b.Head, fp, key); n != nil {
		if err := n.Cell.Update(value, e.metrics); err != nil {
			e.metrics.Record(metrics.OpAdd, int(code(err)))

			return err
		}

		e.metrics.Record(metrics.OpAdd, 0)

		return nil
	}

	c, err := cell.New(key, fp, value, e.concurrent, e.metrics)
	if err != nil {
		e.metrics.Record(metrics.OpAdd, int(code(err)))

		return err
	}

	node := e.nodes.Allocate()
	*node = chain.Node{Fingerprint: fp, Cell: c}

	chain.InsertAtHead(&b.Head, node)
	b.Kind = bucket.List
	b.Count++

	e.metrics.Record(metrics.OpAdd, 0)

	return nil
}

// Get reads a fresh copy of key's value under the bucket's read lock and
// the cell's mutex, preserving the bucket-then-cell lock order required
// by spec §9 even though a delete racing the same key is excluded by the
// bucket lock before any cell mutex is ever taken.
func (e *Engine) Get(key []byte) ([]byte, error) {
	b, fp, err := e.locateBucket(key)
	if err != nil {
		e.metrics.Record(metrics.OpFind, int(code(err)))

		return nil, err
	}

	e.lockBucketRead(b)
	defer e.unlockBucketRead(b)

	n := chain.Find(b.Head, fp, key)
	if n == nil {
		e.metrics.Record(metrics.OpFind, int(errs.KeyNotFound))

		return nil, errs.ErrKeyNotFound
	}

	value := n.Cell.Read(e.metrics)

	e.metrics.Record(metrics.OpFind, 0)

	return value, nil
}

// Delete unlinks key's chain node under the bucket write lock, then
// destroys the cell only once it is already excluded from any future
// traversal, per spec §4.G.7.
func (e *Engine) Delete(key []byte) error {
	b, fp, err := e.locateBucket(key)
	if err != nil {
		e.metrics.Record(metrics.OpDelete, int(code(err)))

		return err
	}

	e.lockBucketWrite(b)
	defer e.unlockBucketWrite(b)

	c, ok := chain.Unlink(&b.Head, fp, key, e.nodes, e.metrics)
	if !ok {
		e.metrics.Record(metrics.OpDelete, int(errs.KeyNotFound))

		return errs.ErrKeyNotFound
	}

	b.Count--
	c.Destroy(e.metrics)

	e.metrics.Record(metrics.OpDelete, 0)

	return nil
}

// Teardown releases every bucket's chain and resets the engine's pools.
func (e *Engine) Teardown() {
	e.buckets.Cleanup(e.nodes)
	e.nodes.Cleanup()
	e.trees.Cleanup()
}

func code(err error) errs.Code {
	if e, ok := err.(*errs.Error); ok {
		return e.Code()
	}

	return errs.InternalError
}
