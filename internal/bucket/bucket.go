// Package bucket implements the hash table's bucket slot: the per-index
// locking unit that owns a collision chain, per spec §4.E and
// original_source/src/keystore/core/type_definition.h (hash_bucket_t).
package bucket

import (
	"sync"

	"github.com/calvinalkan/latchkv/internal/blockpool"
	"github.com/calvinalkan/latchkv/internal/chain"
)

// Kind identifies what a bucket's chain is built from. Tree is reserved by
// the original format but never produced: spec §6 rules out dynamic
// list-to-tree upgrades as a non-goal, so every bucket this store creates
// is List (or Empty before first insert).
type Kind int8

const (
	Empty Kind = iota
	List
	Tree
)

// Bucket is one slot of the hash table. RWMutex guards the chain's
// topology (head pointer, Kind, Count) — never a cell's value buffer,
// which is covered by the cell's own mutex. Lock order is always this
// bucket's RWMutex first, a cell's mutex second, and a cell's mutex is
// never held while acquiring any other lock.
type Bucket struct {
	sync.RWMutex

	Kind        Kind
	Head        *chain.Node
	Count       int
	Initialized bool
}

// Init marks the bucket ready to receive its first node. Call under the
// bucket's write lock.
func (b *Bucket) Init() {
	b.Kind = Empty
	b.Initialized = true
}

// Teardown frees every node in the bucket's chain back to pool and resets
// the bucket to its zero, uninitialized state. Call under the bucket's
// write lock.
func (b *Bucket) Teardown(pool *blockpool.Pool[chain.Node]) {
	for n := b.Head; n != nil; {
		next := n.Next
		n.Cell = nil
		n.Next = nil
		pool.Free(n)
		n = next
	}

	b.Head = nil
	b.Count = 0
	b.Kind = Empty
	b.Initialized = false
}
