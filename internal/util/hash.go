// Package util contains internal helpers (hashing, sharding, padding).
package util

import "fmt"

// Fnv64a hashes common key types using 64-bit FNV-1a. Cache keys in this
// module are ISINs and query strings, so string and []byte are the hot
// cases; integer keys are supported for completeness. Unsupported key types
// panic rather than silently degrade shard distribution.
func Fnv64a[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return fnv64aBytes([]byte(v))
	case []byte:
		return fnv64aBytes(v)
	case int:
		return fnv64aUint64(uint64(v))
	case int64:
		return fnv64aUint64(uint64(v))
	case uint64:
		return fnv64aUint64(v)
	case fmt.Stringer:
		return fnv64aBytes([]byte(v.String()))
	default:
		panic(fmt.Sprintf("util.Fnv64a: unsupported key type %T", k))
	}
}

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

func fnv64aBytes(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

func fnv64aUint64(u uint64) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(u))
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
