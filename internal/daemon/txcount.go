package daemon

import "encoding/binary"

// Offset of the transaction count varint in a CryptoNote hashing blob:
// the block header followed by the 32-byte tree root.
const txCountOffset = 75

// TxCount decodes the transaction count from a hashing blob, 0 when absent.
func TxCount(hashingBlob []byte) uint64 {
	if len(hashingBlob) <= txCountOffset {
		return 0
	}
	count, n := binary.Uvarint(hashingBlob[txCountOffset:])
	if n <= 0 {
		return 0
	}
	return count
}
