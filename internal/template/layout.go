package template

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/pkg/safe"
)

// Region layout, little endian. The version word sits at an 8-byte aligned
// offset so it can be read with sync/atomic from any process.
const (
	regionMagic   uint32 = 0x31435450 // "PTC1"
	layoutVersion uint32 = 2

	offMagic          = 0
	offLayout         = 4
	offVersion        = 8
	offHeight         = 16
	offDifficulty     = 24
	offReservedOffset = 32
	offTxCount        = 40
	offFetchedAt      = 48
	offSeedHash       = 56
	offNextSeedHash   = offSeedHash + hashFieldSize
	offPrevHash       = offNextSeedHash + hashFieldSize
	offHashingLen     = offPrevHash + hashFieldSize
	offBlockLen       = offHashingLen + 4
	offRegionSize     = offBlockLen + 4
	headerSize        = 256

	hashFieldSize = 64
)

var le = binary.LittleEndian

func checkFits(tpl *model.BlockTemplate, capacity int) error {
	hashes := []struct {
		field string
		value string
	}{
		{"seed_hash", tpl.SeedHash},
		{"next_seed_hash", tpl.NextSeedHash},
		{"prev_hash", tpl.PrevHash},
	}
	for _, h := range hashes {
		if len(h.value) > hashFieldSize {
			return &WriteError{Field: h.field, Size: len(h.value), Capacity: hashFieldSize}
		}
	}
	blobs := len(tpl.HashingBlob) + len(tpl.BlockBlob)
	if _, err := safe.Uint32(blobs); err != nil || blobs > capacity {
		return &WriteError{Field: "blobs", Size: blobs, Capacity: capacity}
	}
	return nil
}

// encodeFields writes everything except the version word.
func encodeFields(region []byte, tpl *model.BlockTemplate) {
	le.PutUint64(region[offHeight:], tpl.Height)
	le.PutUint64(region[offDifficulty:], tpl.Difficulty)
	le.PutUint32(region[offReservedOffset:], tpl.ReservedOffset)
	le.PutUint64(region[offTxCount:], tpl.TxCount)

	var fetchedAt int64
	if !tpl.FetchedAt.IsZero() {
		fetchedAt = tpl.FetchedAt.UnixNano()
	}
	le.PutUint64(region[offFetchedAt:], uint64(fetchedAt))

	putHash(region[offSeedHash:offSeedHash+hashFieldSize], tpl.SeedHash)
	putHash(region[offNextSeedHash:offNextSeedHash+hashFieldSize], tpl.NextSeedHash)
	putHash(region[offPrevHash:offPrevHash+hashFieldSize], tpl.PrevHash)

	le.PutUint32(region[offHashingLen:], uint32(len(tpl.HashingBlob)))
	le.PutUint32(region[offBlockLen:], uint32(len(tpl.BlockBlob)))
	n := copy(region[headerSize:], tpl.HashingBlob)
	copy(region[headerSize+n:], tpl.BlockBlob)
}

func decodeFields(region []byte, out *model.BlockTemplate) error {
	hashingLen := int(le.Uint32(region[offHashingLen:]))
	blockLen := int(le.Uint32(region[offBlockLen:]))
	if capacity := len(region) - headerSize; hashingLen+blockLen > capacity {
		return fmt.Errorf("corrupt template region: blobs %d bytes exceed capacity %d", hashingLen+blockLen, capacity)
	}

	out.Height = le.Uint64(region[offHeight:])
	out.Difficulty = le.Uint64(region[offDifficulty:])
	out.ReservedOffset = le.Uint32(region[offReservedOffset:])
	out.TxCount = le.Uint64(region[offTxCount:])
	out.FetchedAt = time.Time{}
	if ns := int64(le.Uint64(region[offFetchedAt:])); ns != 0 {
		out.FetchedAt = time.Unix(0, ns)
	}
	out.SeedHash = getHash(region[offSeedHash : offSeedHash+hashFieldSize])
	out.NextSeedHash = getHash(region[offNextSeedHash : offNextSeedHash+hashFieldSize])
	out.PrevHash = getHash(region[offPrevHash : offPrevHash+hashFieldSize])

	out.HashingBlob = append(out.HashingBlob[:0], region[headerSize:headerSize+hashingLen]...)
	out.BlockBlob = append(out.BlockBlob[:0], region[headerSize+hashingLen:headerSize+hashingLen+blockLen]...)
	return nil
}

func putHash(dst []byte, value string) {
	n := copy(dst, value)
	clear(dst[n:])
}

func getHash(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}

// regionSize returns the size recorded in an initialized header.
func regionSize(hdr []byte) (int, bool) {
	if len(hdr) < headerSize ||
		le.Uint32(hdr[offMagic:]) != regionMagic ||
		le.Uint32(hdr[offLayout:]) != layoutVersion {
		return 0, false
	}
	return int(le.Uint32(hdr[offRegionSize:])), true
}

func initHeader(region []byte) {
	clear(region)
	le.PutUint32(region[offRegionSize:], uint32(len(region)))
	le.PutUint32(region[offLayout:], layoutVersion)
	le.PutUint32(region[offMagic:], regionMagic)
}
