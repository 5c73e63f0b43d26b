// Package clock derives a hash seed from the coarse monotonic clock,
// standing in for the original source's use of time(NULL) to seed its
// hash function at table-init time (original_source/src/keystore/core/keystore.c).
package clock

import "golang.org/x/sys/unix"

// Seed returns a uint32 derived from CLOCK_MONOTONIC_COARSE, suitable as a
// MurmurHash3 seed. It is not meant to be cryptographically unpredictable,
// only to vary the hash distribution across process runs the way the
// original's time-based seed did.
func Seed() uint32 {
	var ts unix.Timespec

	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_COARSE, &ts); err != nil {
		return 0x9e3779b9
	}

	return uint32(ts.Sec)*2654435761 + uint32(ts.Nsec)
}
