package badger

import (
	"encoding/binary"

	"github.com/poiesic/groundwork/core"
)

// Key prefixes for different data types
const (
	chunkPrefix   = "kchunk:"
	chunkIDPrefix = "kchunkid:"
	chunkSeq      = "kchunkseq"
)

// makeChunkKey generates the primary key for a chunk by insertion position.
// Format: prefix + big-endian position, so iteration follows insertion order.
func makeChunkKey(pos uint64) []byte {
	buf := make([]byte, len(chunkPrefix)+8)
	offset := copy(buf, chunkPrefix)
	binary.BigEndian.PutUint64(buf[offset:], pos)
	return buf
}

// makeChunkIDKey generates the content ID index key.
// Format: prefix + big-endian chunk ID; the value is the insertion position.
func makeChunkIDKey(id core.ID) []byte {
	buf := make([]byte, len(chunkIDPrefix)+8)
	offset := copy(buf, chunkIDPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

func encodePosition(pos uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, pos)
	return buf
}

func decodePosition(val []byte) uint64 {
	if len(val) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(val)
}
