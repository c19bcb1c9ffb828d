package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Simple ULID generator that doesn't require external dependencies.
// ULIDs are 26-character Crockford Base32 encoded strings with timestamp prefix.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	// Timestamp in first 6 bytes (big-endian 48-bit).
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	// Random in remaining 10 bytes.
	rand.Read(b[6:])
	// Embed sequence in bytes 6-7 to ensure uniqueness within same ms.
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encode(b)
}

// encode renders 128 bits as 26 Crockford Base32 characters, 5 bits each,
// with a 2-bit zero pad at the top.
func encode(b [16]byte) string {
	var out [26]byte
	acc, accBits, idx := uint32(0), 2, 0
	for _, octet := range b {
		acc = acc<<8 | uint32(octet)
		accBits += 8
		for accBits >= 5 {
			accBits -= 5
			out[idx] = crockford[(acc>>accBits)&31]
			idx++
		}
	}
	return string(out[:])
}
