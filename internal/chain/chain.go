// Package chain implements the list-backed bucket container: a singly
// linked chain of nodes, each owning exactly one cell, per spec §4.D and
// original_source/src/keystore/bucket/hash_bucket_list.c.
package chain

import (
	"github.com/calvinalkan/latchkv/internal/blockpool"
	"github.com/calvinalkan/latchkv/internal/cell"
	"github.com/calvinalkan/latchkv/internal/metrics"
)

// Node is one element of a bucket's collision chain. Fingerprint is stored
// redundantly alongside the cell so Find/Unlink can short-circuit a miss
// without touching the cell or comparing key bytes.
type Node struct {
	Fingerprint uint32
	Cell        *cell.Cell
	Next        *Node
}

// InsertAtHead links node in front of the chain rooted at *head. node must
// not already be linked.
func InsertAtHead(head **Node, node *Node) {
	node.Next = *head
	*head = node
}

// Find walks the chain looking for a node whose fingerprint and key match.
// Fingerprint is compared first; the byte-wise key compare only runs on a
// fingerprint hit, per spec §4.D.
func Find(head *Node, fingerprint uint32, key []byte) *Node {
	for n := head; n != nil; n = n.Next {
		if n.Fingerprint == fingerprint && n.Cell.Equals(fingerprint, key) {
			return n
		}
	}

	return nil
}

// Unlink removes the first node matching fingerprint/key from the chain
// rooted at *head, returns its owned cell, and frees the node's slot back
// to pool. Reports false if no match was found.
func Unlink(head **Node, fingerprint uint32, key []byte, pool *blockpool.Pool[Node], m *metrics.Counters) (*cell.Cell, bool) {
	var prev *Node

	for n := *head; n != nil; n = n.Next {
		if n.Fingerprint != fingerprint || !n.Cell.Equals(fingerprint, key) {
			prev = n

			continue
		}

		if prev == nil {
			*head = n.Next
		} else {
			prev.Next = n.Next
		}

		c := n.Cell
		n.Cell = nil
		n.Next = nil
		pool.Free(n)

		return c, true
	}

	return nil, false
}
