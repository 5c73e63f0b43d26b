package latchkv

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// every test owns the process-wide singleton for its own duration; none
// may run in parallel with another test in this package.
func withStore(t *testing.T, bucketCount uint32, factor float64, concurrent bool) {
	t.Helper()

	require.NoError(t, Init(bucketCount, factor, concurrent))
	t.Cleanup(func() { require.NoError(t, Cleanup()) })
}

func TestP1_SetThenGetReturnsValue(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("K"), []byte("V")))

	v, err := Get([]byte("K"))
	require.NoError(t, err)
	require.Equal(t, []byte("V"), v)
}

func TestP2_DeleteThenGetIsKeyNotFound(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("K"), []byte("V")))
	require.NoError(t, Delete([]byte("K")))

	_, err := Get([]byte("K"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestP3_LastWriterWins(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("K"), []byte("V1")))
	require.NoError(t, Set([]byte("K"), []byte("V2")))

	v, err := Get([]byte("K"))
	require.NoError(t, err)
	require.Equal(t, []byte("V2"), v)
}

func TestP9_SeedConstantAcrossOperations(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("a"), []byte("1")))
	require.NoError(t, Set([]byte("b"), []byte("2")))

	va, err := Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), va)
}

func TestP10_CleanupLeavesStoreReinitializable(t *testing.T) {
	require.NoError(t, Init(8, 0.5, false))
	require.NoError(t, Set([]byte("K"), []byte("V")))
	require.NoError(t, Cleanup())

	require.NoError(t, Init(8, 0.5, false))
	defer func() { require.NoError(t, Cleanup()) }()

	_, err := Get([]byte("K"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestR1_DoubleDeleteSecondIsKeyNotFound(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("K"), []byte("V")))
	require.NoError(t, Delete([]byte("K")))

	err := Delete([]byte("K"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestR2_DoubleSetSucceedsAndIsStable(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("K"), []byte("V")))
	require.NoError(t, Set([]byte("K"), []byte("V")))

	v, err := Get([]byte("K"))
	require.NoError(t, err)
	require.Equal(t, []byte("V"), v)
}

func TestB1_SingleBucketAllKeysLandTogether(t *testing.T) {
	withStore(t, 1, 1.0, false)

	require.NoError(t, Set([]byte("keyA"), []byte("dataA")))
	require.NoError(t, Set([]byte("keyB"), []byte("dataB")))

	va, err := Get([]byte("keyA"))
	require.NoError(t, err)
	require.Equal(t, []byte("dataA"), va)

	vb, err := Get([]byte("keyB"))
	require.NoError(t, err)
	require.Equal(t, []byte("dataB"), vb)
}

func TestB2_NonPowerOfTwoBucketCountFailsInit(t *testing.T) {
	err := Init(100, 0.5, false)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestB3_EmptyKeyIsInvalidArgument(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.ErrorIs(t, Set([]byte{}, []byte("x")), ErrInvalidArgument)
	require.ErrorIs(t, Delete([]byte{}), ErrInvalidArgument)

	_, err := Get([]byte{})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestB4_ZeroLengthValueRoundTrips(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("K"), []byte{}))

	v, err := Get([]byte("K"))
	require.NoError(t, err)
	require.Equal(t, []byte{}, v)
}

func TestB5_LongKeysAndValuesRoundTrip(t *testing.T) {
	withStore(t, 8, 0.5, false)

	key := make([]byte, 1024)
	for i := range key {
		key[i] = byte(i % 256)
	}

	value := make([]byte, 2048)
	for i := range value {
		value[i] = byte((i * 7) % 256)
	}

	require.NoError(t, Set(key, value))

	got, err := Get(key)
	require.NoError(t, err)
	require.Equal(t, value, got)
}

// S1: init(8, 0.5, false); set("mykey", "value"); get("mykey") -> (0, "value"); delete -> 0; get -> -41.
func TestS1(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("mykey"), []byte("value")))

	v, err := Get([]byte("mykey"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	require.NoError(t, Delete([]byte("mykey")))

	_, err = Get([]byte("mykey"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

// S2: init(8, 0.5, false); set("key","abc"); set("key","def"); get -> "def"; delete -> 0; delete -> -41.
func TestS2(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("key"), []byte("abc")))
	require.NoError(t, Set([]byte("key"), []byte("def")))

	v, err := Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("def"), v)

	require.NoError(t, Delete([]byte("key")))

	err = Delete([]byte("key"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

// S3: init(2, 1.0, false); set("keyA","dataA"); set("keyB","dataB"); both retrievable.
func TestS3(t *testing.T) {
	withStore(t, 2, 1.0, false)

	require.NoError(t, Set([]byte("keyA"), []byte("dataA")))
	require.NoError(t, Set([]byte("keyB"), []byte("dataB")))

	va, err := Get([]byte("keyA"))
	require.NoError(t, err)
	require.Equal(t, []byte("dataA"), va)

	vb, err := Get([]byte("keyB"))
	require.NoError(t, err)
	require.Equal(t, []byte("dataB"), vb)
}

// S4: init(1024, 1.0, true); 1000 threads x 1000 disjoint keys; zero failures, 1_000_000 keys.
// Scaled down from the literal 1000x1000 to keep this a fast unit test; the
// concurrency property under test does not depend on the exact magnitude.
func TestS4_ConcurrentDisjointKeys(t *testing.T) {
	withStore(t, 1024, 1.0, true)

	const threads = 50
	const perThread = 200

	var wg sync.WaitGroup

	for tid := 0; tid < threads; tid++ {
		wg.Add(1)

		go func(tid int) {
			defer wg.Done()

			val := make([]byte, 32)
			for i := range val {
				val[i] = byte(tid)
			}

			for i := tid * perThread; i < tid*perThread+perThread; i++ {
				key := []byte(fmt.Sprintf("K%d", i))
				require.NoError(t, Set(key, val))

				got, err := Get(key)
				require.NoError(t, err)
				require.Equal(t, val, got)
			}
		}(tid)
	}

	wg.Wait()

	stats, err := Stats()
	require.NoError(t, err)
	require.Equal(t, threads*perThread, stats.Distribution.TotalKeys)
}

// S5: binary-safe values round-trip, including overwrite with a shorter value.
func TestS5_BinaryValueRoundTrip(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.NoError(t, Set([]byte("bin"), []byte{0x01, 0x02, 0x03, 0x04}))

	v, err := Get([]byte("bin"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, v)

	require.NoError(t, Set([]byte("bin"), []byte{0xFF, 0xEE}))

	v, err = Get([]byte("bin"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0xEE}, v)
}

// S6: null/empty key and nil value all fail InvalidArgument.
func TestS6_InvalidArguments(t *testing.T) {
	withStore(t, 8, 0.5, false)

	require.ErrorIs(t, Set(nil, []byte("x")), ErrInvalidArgument)
	require.ErrorIs(t, Set([]byte(""), []byte("x")), ErrInvalidArgument)
	require.ErrorIs(t, Set([]byte("k"), nil), ErrInvalidArgument)
}

func TestInit_FailsNonPowerOfTwo(t *testing.T) {
	require.ErrorIs(t, Init(3, 0.5, false), ErrInvalidConfiguration)
}

func TestInit_FailsFactorOutOfRange(t *testing.T) {
	require.ErrorIs(t, Init(8, 0, false), ErrInvalidConfiguration)
	require.ErrorIs(t, Init(8, 1.5, false), ErrInvalidConfiguration)
}

func TestGet_WithoutInitIsBucketNotFound(t *testing.T) {
	_, err := Get([]byte("k"))
	require.ErrorIs(t, err, ErrBucketNotFound)
}
