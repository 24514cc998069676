package ext4

import (
	"encoding/binary"

	"github.com/blkscrub/blkscrub/crc"
)

// GroupDescriptor is one entry of the group descriptor table: the
// locations of a block group's block bitmap, inode bitmap, and inode
// table, its free/used counters, and its flags. Every field is exposed,
// including ones the scanner never reads; the 64bit extension fields are
// decoded when present but otherwise left zero.
type GroupDescriptor struct {
	BlockBitmapLo     uint32
	InodeBitmapLo     uint32
	InodeTableLo      uint32
	FreeBlocksCountLo uint16
	FreeInodesCountLo uint16
	UsedDirsCountLo   uint16
	Flags             BgFlags
	ExcludeBitmapLo   uint32
	BlockBitmapCsumLo uint16
	InodeBitmapCsumLo uint16
	ItableUnusedLo    uint16
	Checksum          uint16

	BlockBitmapHi     uint32
	InodeBitmapHi     uint32
	InodeTableHi      uint32
	FreeBlocksCountHi uint16
	FreeInodesCountHi uint16
	UsedDirsCountHi   uint16
	ExcludeBitmapHi   uint32
	BlockBitmapCsumHi uint16
	InodeBitmapCsumHi uint16
	ItableUnusedHi    uint16

	raw [64]byte
}

// DecodeGroupDescriptorTable decodes bgCount consecutive descriptors of
// descSize bytes each (32 for 32-bit filesystems, 64 for 64bit ones) from
// buf.
func DecodeGroupDescriptorTable(buf []byte, bgCount uint32, descSize uint32) ([]GroupDescriptor, error) {
	need := uint64(bgCount) * uint64(descSize)
	if uint64(len(buf)) < need {
		return nil, decodeErrorf("group descriptor table", "buffer too small: got %d bytes, need %d", len(buf), need)
	}

	le := binary.LittleEndian
	out := make([]GroupDescriptor, bgCount)
	for i := uint32(0); i < bgCount; i++ {
		entry := buf[uint64(i)*uint64(descSize) : uint64(i)*uint64(descSize)+uint64(descSize)]
		gd := &out[i]
		copy(gd.raw[:], entry[:min(len(entry), len(gd.raw))])

		gd.BlockBitmapLo = le.Uint32(entry[0x00:])
		gd.InodeBitmapLo = le.Uint32(entry[0x04:])
		gd.InodeTableLo = le.Uint32(entry[0x08:])
		gd.FreeBlocksCountLo = le.Uint16(entry[0x0C:])
		gd.FreeInodesCountLo = le.Uint16(entry[0x0E:])
		gd.UsedDirsCountLo = le.Uint16(entry[0x10:])
		gd.Flags = BgFlags(le.Uint16(entry[0x12:]))
		gd.ExcludeBitmapLo = le.Uint32(entry[0x14:])
		gd.BlockBitmapCsumLo = le.Uint16(entry[0x18:])
		gd.InodeBitmapCsumLo = le.Uint16(entry[0x1A:])
		gd.ItableUnusedLo = le.Uint16(entry[0x1C:])
		gd.Checksum = le.Uint16(entry[0x1E:])

		if descSize >= 64 {
			gd.BlockBitmapHi = le.Uint32(entry[0x20:])
			gd.InodeBitmapHi = le.Uint32(entry[0x24:])
			gd.InodeTableHi = le.Uint32(entry[0x28:])
			gd.FreeBlocksCountHi = le.Uint16(entry[0x2C:])
			gd.FreeInodesCountHi = le.Uint16(entry[0x2E:])
			gd.UsedDirsCountHi = le.Uint16(entry[0x30:])
			gd.ExcludeBitmapHi = le.Uint32(entry[0x34:])
			gd.BlockBitmapCsumHi = le.Uint16(entry[0x38:])
			gd.InodeBitmapCsumHi = le.Uint16(entry[0x3A:])
			gd.ItableUnusedHi = le.Uint16(entry[0x3C:])
		}
	}

	return out, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// BlockBitmap returns the block number of this group's block bitmap.
func (gd *GroupDescriptor) BlockBitmap() uint64 {
	return uint64(gd.BlockBitmapLo) | uint64(gd.BlockBitmapHi)<<32
}

// InodeBitmap returns the block number of this group's inode bitmap.
func (gd *GroupDescriptor) InodeBitmap() uint64 {
	return uint64(gd.InodeBitmapLo) | uint64(gd.InodeBitmapHi)<<32
}

// InodeTable returns the starting block number of this group's inode table.
func (gd *GroupDescriptor) InodeTable() uint64 {
	return uint64(gd.InodeTableLo) | uint64(gd.InodeTableHi)<<32
}

// ItableUnused returns the count of never-initialized inodes at the tail
// of this group's inode table.
func (gd *GroupDescriptor) ItableUnused() uint32 {
	return uint32(gd.ItableUnusedLo) | uint32(gd.ItableUnusedHi)<<16
}

// VerifyChecksum recomputes this descriptor's 16-bit metadata_csum
// checksum and compares it to the stored value. bgNum is this
// descriptor's index; seed is Fs.ChecksumSeed. Ported from the checksum
// derivation in e2fsprogs: the low 16 bits of crc32c(seed, bg_num_le)
// continued over the descriptor with its checksum field zeroed.
func (gd *GroupDescriptor) VerifyChecksum(bgNum uint32, seed uint32, descSize uint32) bool {
	var bgNumLE [4]byte
	binary.LittleEndian.PutUint32(bgNumLE[:], bgNum)

	buf := make([]byte, descSize)
	copy(buf, gd.raw[:descSize])
	binary.LittleEndian.PutUint16(buf[0x1E:], 0)

	c := crc.Ext4(seed, bgNumLE[:])
	c = crc.Ext4(c, buf)
	return uint16(c&0xFFFF) == gd.Checksum
}
