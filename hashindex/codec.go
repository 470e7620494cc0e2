package hashindex

import (
	"encoding/binary"

	"github.com/csc-systems/pagestore/common"
)

// Codec is the fixed-width encode/decode pair for a hash index's key or
// value type. It stands in for the externally-pluggable "key/comparator/
// hash function" family named as an out-of-scope collaborator: any type
// with a stable, fixed-size on-page representation can be indexed by
// implementing this interface.
type Codec[T any] interface {
	// Size is the fixed number of bytes this codec occupies on a page.
	Size() int
	// Encode writes v into buf, which is exactly Size() bytes long.
	Encode(v T, buf []byte)
	// Decode reads a value out of buf, which is exactly Size() bytes long.
	Decode(buf []byte) T
}

// Int64Codec encodes int64 in 8 bytes, little-endian.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }

func (Int64Codec) Encode(v int64, buf []byte) {
	binary.LittleEndian.PutUint64(buf, uint64(v))
}

func (Int64Codec) Decode(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}

// StringCodec encodes a string into a fixed Width-byte field, null-padded
// on encode and trimmed at the first zero byte on decode. Strings longer
// than Width are truncated on encode.
type StringCodec struct {
	Width int
}

func (c StringCodec) Size() int { return c.Width }

func (c StringCodec) Encode(v string, buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	copy(buf, v)
}

func (c StringCodec) Decode(buf []byte) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

// HashFunc computes a key's hash for slot addressing. The hash table takes
// the result modulo its current capacity.
type HashFunc[K any] func(key K) uint64

// IdentityHash treats an int64 key as its own hash. Useful for keys that
// are already well-distributed integers (surrogate ids, sequence numbers).
func IdentityHash(key int64) uint64 {
	return uint64(key)
}

// FNVHash hashes a string key with the shared FNV-1a implementation, for
// keys with no natural integer identity (names, external ids).
func FNVHash(key string) uint64 {
	return common.Hash([]byte(key))
}
