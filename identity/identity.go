// Package identity implements the string-derived ObjectId helper: an
// identity may be derived from an ASCII string of up to 8 characters, its
// bytes packed as a little-endian u64 with unused high-order bytes zero.
// Strings longer than 8 bytes are silently truncated to their first 8
// bytes.
package identity

import (
	"encoding/binary"

	"github.com/relaysync/gamesync/wire"
)

// FromString derives an ObjectId from s, truncating beyond 8 bytes. The
// first byte of s becomes the least-significant byte of the result.
func FromString(s string) wire.ObjectId {
	b := []byte(s)
	if len(b) > 8 {
		b = b[:8]
	}

	var buf [8]byte
	copy(buf[:], b)
	return wire.ObjectId(binary.LittleEndian.Uint64(buf[:]))
}
