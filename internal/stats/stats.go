// Package stats walks the bucket pool and shared counters to produce a
// point-in-time snapshot, per spec §4.H and
// original_source/src/keystore/utils/stats.c.
package stats

import (
	"math"
	"sort"
	"unsafe"

	"github.com/calvinalkan/latchkv/internal/blockpool"
	"github.com/calvinalkan/latchkv/internal/bucketpool"
	"github.com/calvinalkan/latchkv/internal/chain"
	"github.com/calvinalkan/latchkv/internal/metrics"
)

// Distribution reports how keys are spread across the table.
type Distribution struct {
	TotalBuckets       int
	InitializedBuckets int
	NonEmptyBuckets    int
	EmptyBuckets       int
	TotalKeys          int
	MaxKeysPerBucket   int
	MinKeysPerBucket   int
	AvgKeysPerBucket    float64
	MedianKeysPerBucket float64
	StddevKeysPerBucket float64
	EmptyBucketPercent  float64
	AvgCollisionsPerNonEmptyBucket float64
}

// Collision reports overflow-chain concentration.
type Collision struct {
	BucketsWithMultipleEntries int
	CollisionPercent           float64
	HighestCollisionCount      int
	AvgCollisionsInCollisionBuckets float64
}

// Memory reports byte accounting for the bucket array.
type Memory struct {
	TotalBytes          uint64
	UsedBytes           uint64
	FreeBytes           uint64
	UtilizationPercent   float64
	BytesPerKey          float64
	FragmentationPercent float64 // reserved, always 0 — never computed upstream
}

// Operations mirrors the shared operation counters, one row per category.
type Operations struct {
	Totals    map[metrics.Op]uint64
	Failed    map[metrics.Op]uint64
	Histogram [100]uint64
}

// Statistics is the full point-in-time snapshot returned by Collect.
type Statistics struct {
	Distribution Distribution
	Collision    Collision
	Memory       Memory
	Operations   Operations
}

// Collect walks buckets without taking any lock — this is an advisory
// read, not a consistent snapshot, matching spec §4.H.
func Collect(buckets *bucketpool.Pool, nodes *blockpool.Pool[chain.Node], m *metrics.Counters) Statistics {
	all := buckets.Buckets()

	var (
		initialized, nonEmpty, totalKeys int
		maxKeys                          int
		minKeys                          = -1
		counts                           []int
	)

	for i := range all {
		b := &all[i]
		if !b.Initialized {
			continue
		}

		initialized++
		totalKeys += b.Count

		if b.Count > 0 {
			nonEmpty++
			counts = append(counts, b.Count)

			if b.Count > maxKeys {
				maxKeys = b.Count
			}

			if minKeys == -1 || b.Count < minKeys {
				minKeys = b.Count
			}
		}
	}

	if minKeys == -1 {
		minKeys = 0
	}

	dist := Distribution{
		TotalBuckets:       len(all),
		InitializedBuckets: initialized,
		NonEmptyBuckets:    nonEmpty,
		EmptyBuckets:       len(all) - nonEmpty,
		TotalKeys:          totalKeys,
		MaxKeysPerBucket:   maxKeys,
		MinKeysPerBucket:   minKeys,
	}

	if len(all) > 0 {
		dist.EmptyBucketPercent = percent(dist.EmptyBuckets, len(all))
	}

	if nonEmpty > 0 {
		dist.AvgKeysPerBucket = float64(totalKeys) / float64(nonEmpty)
		dist.MedianKeysPerBucket = median(counts)
		dist.StddevKeysPerBucket = stddev(counts, dist.AvgKeysPerBucket)
		dist.AvgCollisionsPerNonEmptyBucket = float64(totalKeys-nonEmpty) / float64(nonEmpty)
	}

	var (
		collisionBuckets int
		highest           int
		collisionKeySum   int
	)

	for _, c := range counts {
		if c > 1 {
			collisionBuckets++
			collisionKeySum += c

			if c > highest {
				highest = c
			}
		}
	}

	coll := Collision{
		BucketsWithMultipleEntries: collisionBuckets,
		HighestCollisionCount:      highest,
	}

	if nonEmpty > 0 {
		coll.CollisionPercent = percent(collisionBuckets, nonEmpty)
	}

	if collisionBuckets > 0 {
		coll.AvgCollisionsInCollisionBuckets = float64(collisionKeySum) / float64(collisionBuckets)
	}

	stride := uint64(unsafe.Sizeof(all[0]))

	mem := Memory{
		TotalBytes: uint64(len(all)) * stride,
		UsedBytes:  uint64(initialized) * stride,
	}
	mem.FreeBytes = mem.TotalBytes - mem.UsedBytes

	if mem.TotalBytes > 0 {
		mem.UtilizationPercent = percent(int(mem.UsedBytes), int(mem.TotalBytes))
	}

	if totalKeys > 0 {
		mem.BytesPerKey = float64(mem.UsedBytes) / float64(totalKeys)
	}

	ops := Operations{
		Totals: make(map[metrics.Op]uint64, len(metrics.Ops())),
		Failed: make(map[metrics.Op]uint64, len(metrics.Ops())),
	}

	for _, op := range metrics.Ops() {
		ops.Totals[op] = m.Total(op)
		ops.Failed[op] = m.Failed(op)
	}

	ops.Histogram = m.Histogram()

	return Statistics{
		Distribution: dist,
		Collision:    coll,
		Memory:       mem,
		Operations:   ops,
	}
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}

	return 100 * float64(part) / float64(whole)
}

// median sorts a *copy* of counts numerically (never byte-wise — spec §4.H
// flags the source's byte-wise comparator as a bug that must not be
// reproduced) and returns the middle value, averaging the two middle
// values for an even-length sample.
func median(counts []int) float64 {
	sorted := append([]int(nil), counts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	if n == 0 {
		return 0
	}

	if n%2 == 1 {
		return float64(sorted[n/2])
	}

	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

func stddev(counts []int, mean float64) float64 {
	if len(counts) == 0 {
		return 0
	}

	var sumSq float64

	for _, c := range counts {
		d := float64(c) - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(counts)))
}
