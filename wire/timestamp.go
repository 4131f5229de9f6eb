package wire

import "github.com/jonboulle/clockwork"

const epochWindow = 1 << 16

// expandTime16 reconstructs a full epoch-millisecond timestamp from the low
// 16 bits carried on the wire: take the current wall-clock epoch, overwrite
// its low 16 bits with low16, and if the result lands in the future
// relative to now, step back one 65536ms window.
func expandTime16(low16 uint16, clock clockwork.Clock) DateTimeMs {
	now := clock.Now().UnixMilli()
	reconstructed := (now &^ (epochWindow - 1)) | int64(low16)
	if reconstructed > now {
		reconstructed -= epochWindow
	}
	return DateTimeMs(reconstructed)
}

// truncateTime16 extracts the low 16 bits of a full timestamp for encoding.
func truncateTime16(t DateTimeMs) uint16 {
	return uint16(int64(t) & (epochWindow - 1))
}
