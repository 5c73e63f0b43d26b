package latchkv

import (
	"math"
	"sync"

	"github.com/calvinalkan/latchkv/internal/blockpool"
	"github.com/calvinalkan/latchkv/internal/bucketpool"
	"github.com/calvinalkan/latchkv/internal/chain"
	"github.com/calvinalkan/latchkv/internal/clock"
	"github.com/calvinalkan/latchkv/internal/engine"
	"github.com/calvinalkan/latchkv/internal/errs"
	"github.com/calvinalkan/latchkv/internal/metrics"
	"github.com/calvinalkan/latchkv/internal/stats"
)

// Code is the store's stable, signed error-code contract: zero is success,
// negative values are failures. Preserved across rebuilds so existing
// callers and test harnesses keep working.
type Code = errs.Code

// Statistics is a point-in-time snapshot returned by [Stats].
type Statistics = stats.Statistics

// Sentinel errors, usable with errors.Is. Each wraps a stable Code from
// the table documented on Code's declaration.
var (
	ErrAllocationFailed      = errs.ErrAllocationFailed
	ErrLockInitFailed        = errs.ErrLockInitFailed
	ErrInvalidArgument       = errs.ErrInvalidArgument
	ErrInvalidConfiguration  = errs.ErrInvalidConfiguration
	ErrLockAcquisitionFailed = errs.ErrLockAcquisitionFailed
	ErrLockReleaseFailed     = errs.ErrLockReleaseFailed
	ErrBucketNotFound        = errs.ErrBucketNotFound
	ErrKeyNotFound           = errs.ErrKeyNotFound
	ErrUnsupportedBucketType = errs.ErrUnsupportedBucketType
	ErrUnknownOperation      = errs.ErrUnknownOperation
	ErrInternalError         = errs.ErrInternalError
	ErrHashFunctionFailed    = errs.ErrHashFunctionFailed
	ErrInvalidIndex          = errs.ErrInvalidIndex
)

var (
	mu    sync.Mutex
	store *instance
)

// instance holds the process-wide state a running store needs: a single
// bucket pool, a single chain-node block pool, a single reserved tree-node
// block pool, a single hash seed and a single set of counters, per spec §6
// "Process-wide state".
type instance struct {
	buckets *bucketpool.Pool
	nodes   *blockpool.Pool[chain.Node]
	trees   *blockpool.Pool[chain.Node]
	metrics metrics.Counters
	engine  *engine.Engine
}

// Init constructs the process-wide store. bucketCount must be a positive
// power of two; preAllocationFactor must be in (0, 1] and sizes the
// chain-node block pool as ceil(bucketCount * preAllocationFactor).
// enableConcurrency selects whether every bucket and cell carries a lock.
//
// Calling Init while a store is already live is legal only after Cleanup;
// otherwise it returns InvalidConfiguration without disturbing the live
// store.
func Init(bucketCount uint32, preAllocationFactor float64, enableConcurrency bool) error {
	mu.Lock()
	defer mu.Unlock()

	if store != nil {
		return errs.ErrInvalidConfiguration
	}

	if preAllocationFactor <= 0 || preAllocationFactor > 1 {
		return errs.ErrInvalidConfiguration
	}

	buckets, err := bucketpool.New(bucketCount, enableConcurrency)
	if err != nil {
		return err
	}

	capacity := int(math.Ceil(float64(bucketCount) * preAllocationFactor))

	nodes, err := blockpool.New[chain.Node](capacity, enableConcurrency)
	if err != nil {
		return err
	}

	// Reserved tree-node pool: always allocated, never drawn from. The
	// original format reserves this extension point unconditionally, and
	// bucket.Tree has no writer in this version.
	trees, err := blockpool.New[chain.Node](capacity, enableConcurrency)
	if err != nil {
		return err
	}

	inst := &instance{
		buckets: buckets,
		nodes:   nodes,
		trees:   trees,
	}
	inst.engine = engine.New(buckets, nodes, trees, clock.Seed(), enableConcurrency, &inst.metrics)

	store = inst

	return nil
}

// Cleanup tears down the process-wide store, releasing every bucket's
// chain and all pooled slots. Safe to call when no store is live.
// A subsequent Init is always legal afterward.
func Cleanup() error {
	mu.Lock()
	defer mu.Unlock()

	if store == nil {
		return nil
	}

	store.engine.Teardown()
	store = nil

	return nil
}

func current() (*instance, error) {
	mu.Lock()
	defer mu.Unlock()

	if store == nil {
		return nil, errs.ErrBucketNotFound
	}

	return store, nil
}

// Set upserts key to value. A nil key, empty key, or nil value fails
// InvalidArgument; a zero-length, non-nil value is a valid store.
func Set(key, value []byte) error {
	inst, err := current()
	if err != nil {
		return err
	}

	return inst.engine.Set(key, value)
}

// Get returns a fresh copy of key's value, or KeyNotFound if absent.
func Get(key []byte) ([]byte, error) {
	inst, err := current()
	if err != nil {
		return nil, err
	}

	return inst.engine.Get(key)
}

// Delete removes key from the store, or returns KeyNotFound if absent.
func Delete(key []byte) error {
	inst, err := current()
	if err != nil {
		return err
	}

	return inst.engine.Delete(key)
}

// Stats collects a point-in-time snapshot of distribution, collision,
// memory and operation-counter statistics. The walk takes no lock, so the
// result is advisory under concurrent mutation.
func Stats() (Statistics, error) {
	inst, err := current()
	if err != nil {
		return Statistics{}, err
	}

	return stats.Collect(inst.buckets, inst.nodes, &inst.metrics), nil
}
