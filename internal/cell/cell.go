// Package cell implements the data cell: the object that owns one key and
// its associated value, per spec §3 ("Data cell") and
// original_source/src/keystore/core/data_node.c.
package cell

import (
	"bytes"
	"sync"

	"github.com/calvinalkan/latchkv/internal/errs"
	"github.com/calvinalkan/latchkv/internal/metrics"
)

// Cell owns one key/value pair. Key and Fingerprint are set once at
// creation and never change afterward. Value is guarded by mu when the
// store is in concurrent mode; mu is nil otherwise, so single-threaded
// stores pay no locking cost.
type Cell struct {
	Key         []byte
	Fingerprint uint32

	mu    *sync.Mutex
	value []byte
}

// New creates a cell, copying both key and value so the caller's buffers
// can be reused or mutated afterward without affecting the cell.
//
// Fails InvalidArgument on an empty key or a nil value (a zero-length,
// non-nil value is allowed and stores an empty buffer).
func New(key []byte, fingerprint uint32, value []byte, concurrent bool, m *metrics.Counters) (*Cell, error) {
	if len(key) == 0 || value == nil {
		m.Record(metrics.OpCreate, int(errs.InvalidArgument))

		return nil, errs.ErrInvalidArgument
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c := &Cell{
		Key:         append([]byte(nil), key...),
		Fingerprint: fingerprint,
		value:       valueCopy,
	}

	if concurrent {
		c.mu = &sync.Mutex{}
	}

	m.Record(metrics.OpCreate, 0)

	return c, nil
}

func (c *Cell) lock() {
	if c.mu != nil {
		c.mu.Lock()
	}
}

func (c *Cell) unlock() {
	if c.mu != nil {
		c.mu.Unlock()
	}
}

// Read returns a fresh copy of the cell's current value. The caller owns
// the returned slice.
func (c *Cell) Read(m *metrics.Counters) []byte {
	c.lock()
	out := make([]byte, len(c.value))
	copy(out, c.value)
	c.unlock()

	m.Record(metrics.OpRead, 0)

	return out
}

// Update replaces the cell's value. Same-size updates copy in place;
// zero-length frees the buffer; any other size reallocates. Fails
// InvalidArgument on a nil newValue, leaving the cell unchanged.
func (c *Cell) Update(newValue []byte, m *metrics.Counters) error {
	if newValue == nil {
		m.Record(metrics.OpUpdate, int(errs.InvalidArgument))

		return errs.ErrInvalidArgument
	}

	c.lock()

	switch {
	case len(newValue) == len(c.value):
		copy(c.value, newValue)
	case len(newValue) == 0:
		c.value = []byte{}
	default:
		c.value = append([]byte(nil), newValue...)
	}

	c.unlock()

	m.Record(metrics.OpUpdate, 0)

	return nil
}

// Equals reports whether this cell matches the given fingerprint/key pair.
// Fingerprint is compared first to short-circuit the byte compare on miss.
func (c *Cell) Equals(fingerprint uint32, key []byte) bool {
	return c.Fingerprint == fingerprint && bytes.Equal(c.Key, key)
}

// Destroy releases the cell's resources. After Destroy the cell must not be
// used again. Delete's own counter is the engine's to own, mirroring
// Set/Get's OpAdd/OpFind, so Destroy records nothing.
func (c *Cell) Destroy(*metrics.Counters) {
	c.value = nil
	c.mu = nil
}
