// Package identity derives stable numeric listing ids from provider-native ids.
package identity

import (
	"crypto/md5"
	"encoding/binary"
)

// MaxID is the exclusive upper bound of resolved ids; every id fits a signed
// 32-bit column.
const MaxID = 2147483647

// Resolve maps a provider-native id to a stable integer in [0, MaxID).
// It hashes the id with MD5, reads the first 32 bits big-endian and reduces
// them modulo MaxID. Distinct ids may collide; no rehash is attempted.
func Resolve(nativeID string) int64 {
	sum := md5.Sum([]byte(nativeID))
	prefix := binary.BigEndian.Uint32(sum[:4])
	return int64(prefix % MaxID)
}

// FromNative returns n unchanged when it already fits the id range, and
// otherwise resolves its decimal form. Providers with small integer ids use
// this to keep their ids readable.
func FromNative(n int64, nativeID string) int64 {
	if n > 0 && n < MaxID {
		return n
	}
	return Resolve(nativeID)
}
