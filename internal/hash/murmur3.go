// Package hash computes the 32-bit key fingerprint used to route a key to
// a bucket. The algorithm is MurmurHash3 x86/32, ported constant-for-constant
// from original_source/src/keystore/hash/hash_functions.c so that two builds
// of this store seeded identically produce identical fingerprints.
package hash

// Constant names mirror hash_functions.c so the port is traceable line by
// line against the original.
const (
	blockSize = 4

	blockMixConstant1 = 0xcc9e2d51
	blockMixConstant2 = 0x1b873593
	blockRotationBits = 15

	hashRotationBits      = 13
	hashMultiplier        = 5
	hashAdditionConstant  = 0xe6546b64
	finalizationShift1    = 16
	finalizationShift2    = 13
	finalizationMultiplier1 = 0x85ebca6b
	finalizationMultiplier2 = 0xc2b2ae35
)

// Invalid is returned by Fingerprint for inputs the algorithm refuses to
// hash (spec: a reserved sentinel, only on invalid input).
const Invalid uint32 = 0xFFFFFFFF

func leftCircularRotate(data uint32, bits uint32) uint32 {
	return (data << bits) | (data >> (32 - bits))
}

func mixBlock(blockData, h uint32) uint32 {
	blockData *= blockMixConstant1
	blockData = leftCircularRotate(blockData, blockRotationBits)
	blockData *= blockMixConstant2

	return h ^ blockData
}

func processBlocks(data []byte, h uint32) uint32 {
	blockCount := len(data) / blockSize

	for i := 0; i < blockCount; i++ {
		off := i * blockSize
		block := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24

		h = mixBlock(block, h)
		h = leftCircularRotate(h, hashRotationBits)
		h = h*hashMultiplier + hashAdditionConstant
	}

	return h
}

func processTail(data []byte, h uint32) uint32 {
	blockCount := len(data) / blockSize
	tail := data[blockCount*blockSize:]

	var block uint32

	switch len(tail) {
	case 3:
		block ^= uint32(tail[2]) << 16

		fallthrough
	case 2:
		block ^= uint32(tail[1]) << 8

		fallthrough
	case 1:
		block ^= uint32(tail[0])

		return mixBlock(block, h)
	}

	return h
}

func finalize(h uint32) uint32 {
	h ^= h >> finalizationShift1
	h *= finalizationMultiplier1
	h ^= h >> finalizationShift2
	h *= finalizationMultiplier2
	h ^= h >> finalizationShift1

	return h
}

// Fingerprint computes the MurmurHash3 x86/32 hash of key with the given
// seed. It returns Invalid only when key is nil; a nil key is the only
// input this function refuses, per spec §4.A. Every other byte sequence,
// including the empty slice, produces a normal (possibly zero) hash value —
// callers that must reject empty keys do so themselves (spec: empty key is
// an InvalidArgument at the façade, not a hash-function failure).
func Fingerprint(key []byte, seed uint32) uint32 {
	if key == nil {
		return Invalid
	}

	h := processBlocks(key, seed)
	h = processTail(key, h)
	h = finalize(h)

	return h
}
