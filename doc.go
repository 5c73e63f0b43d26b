// Package latchkv is an in-memory, concurrent key-value store built on a
// fixed-size hash table. Buckets are protected by a reader/writer lock
// guarding chain topology; individual value cells carry their own mutex
// guarding only the value buffer. See [Init] for the store's lifecycle.
//
// The store is process-wide: there is a single live instance behind Init,
// Set, Get, Delete, Stats and Cleanup. Re-Init after Cleanup is legal.
package latchkv
