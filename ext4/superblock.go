package ext4

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// SuperblockSize is the on-disk size of the primary superblock structure,
// including the 64bit/dynamic extension fields and trailing checksum.
const SuperblockSize = 1024

// SuperblockOffset is the byte offset of the superblock from the start of
// the drive, regardless of the filesystem's block size.
const SuperblockOffset = 1024

const superblockMagic = 0xEF53

// Superblock is the decoded ext2/3/4 superblock. Field names mirror the
// on-disk s_* names with the prefix dropped. Only fields the scanner and
// its validation pipeline actually consult are exposed; the remainder of
// the 1024-byte structure is retained in raw form for checksum recomputation.
type Superblock struct {
	InodesCount        uint32
	BlocksCountLo      uint32
	RBlocksCountLo      uint32
	FreeBlocksCountLo  uint32
	FreeInodesCount    uint32
	FirstDataBlock     uint32
	LogBlockSize       uint32
	LogClusterSize     uint32
	BlocksPerGroup     uint32
	ClustersPerGroup   uint32
	InodesPerGroup     uint32
	Mtime              uint32
	Wtime              uint32
	MntCount           uint16
	MaxMntCount        uint16
	Magic              uint16
	State              State
	Errors             uint16
	MinorRevLevel      uint16
	Lastcheck          uint32
	Checkinterval      uint32
	CreatorOS          uint32
	RevLevel           uint32
	DefResuid          uint16
	DefResgid          uint16

	FirstIno         uint32
	InodeSize        uint16
	BlockGroupNr     uint16
	FeatureCompat    CompatFeatures
	FeatureIncompat  IncompatFeatures
	FeatureRoCompat  RoCompatFeatures
	UUID             uuid.UUID
	VolumeName       [16]byte
	LastMounted      [64]byte
	AlgorithmUsageBitmap uint32

	PreallocBlocks    uint8
	PreallocDirBlocks uint8
	ReservedGDTBlocks uint16

	JournalUUID     uuid.UUID
	JournalInum     uint32
	JournalDev      uint32
	LastOrphan      uint32
	HashSeed        [4]uint32
	DefHashVersion  uint8
	JnlBackupType   uint8
	DescSize        uint16
	DefaultMountOpts DefMountOpts
	FirstMetaBG     uint32
	MkfsTime        uint32
	JnlBlocks       [17]uint32

	BlocksCountHi     uint32
	RBlocksCountHi    uint32
	FreeBlocksCountHi uint32
	MinExtraIsize     uint16
	WantExtraIsize    uint16
	Flags             SuperblockFlags
	RaidStride        uint16
	MmpInterval       uint16
	MmpBlock          uint64
	RaidStripeWidth   uint32
	LogGroupsPerFlex  uint8
	ChecksumType      uint8
	KbytesWritten     uint64

	OverheadBlocks uint32
	BackupBGs      [2]uint32
	EncryptAlgos   [4]uint8
	ChecksumSeed   uint32
	Encoding       uint16
	EncodingFlags  uint16
	Checksum       uint32

	raw [SuperblockSize]byte
}

// DecodeSuperblock parses the 1024-byte superblock structure starting at
// buf[0]. buf must be at least SuperblockSize bytes.
func DecodeSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < SuperblockSize {
		return nil, decodeErrorf("superblock", "buffer too small: got %d bytes, need %d", len(buf), SuperblockSize)
	}

	le := binary.LittleEndian
	sb := &Superblock{}
	copy(sb.raw[:], buf[:SuperblockSize])

	sb.InodesCount = le.Uint32(buf[0x00:])
	sb.BlocksCountLo = le.Uint32(buf[0x04:])
	sb.RBlocksCountLo = le.Uint32(buf[0x08:])
	sb.FreeBlocksCountLo = le.Uint32(buf[0x0C:])
	sb.FreeInodesCount = le.Uint32(buf[0x10:])
	sb.FirstDataBlock = le.Uint32(buf[0x14:])
	sb.LogBlockSize = le.Uint32(buf[0x18:])
	sb.LogClusterSize = le.Uint32(buf[0x1C:])
	sb.BlocksPerGroup = le.Uint32(buf[0x20:])
	sb.ClustersPerGroup = le.Uint32(buf[0x24:])
	sb.InodesPerGroup = le.Uint32(buf[0x28:])
	sb.Mtime = le.Uint32(buf[0x2C:])
	sb.Wtime = le.Uint32(buf[0x30:])
	sb.MntCount = le.Uint16(buf[0x34:])
	sb.MaxMntCount = le.Uint16(buf[0x36:])
	sb.Magic = le.Uint16(buf[0x38:])
	sb.State = State(le.Uint16(buf[0x3A:]))
	sb.Errors = le.Uint16(buf[0x3C:])
	sb.MinorRevLevel = le.Uint16(buf[0x3E:])
	sb.Lastcheck = le.Uint32(buf[0x40:])
	sb.Checkinterval = le.Uint32(buf[0x44:])
	sb.CreatorOS = le.Uint32(buf[0x48:])
	sb.RevLevel = le.Uint32(buf[0x4C:])
	sb.DefResuid = le.Uint16(buf[0x50:])
	sb.DefResgid = le.Uint16(buf[0x52:])

	if sb.Magic != superblockMagic {
		return nil, decodeErrorf("superblock", "bad magic %#04x, want %#04x", sb.Magic, superblockMagic)
	}

	sb.FirstIno = le.Uint32(buf[0x54:])
	sb.InodeSize = le.Uint16(buf[0x58:])
	sb.BlockGroupNr = le.Uint16(buf[0x5A:])
	sb.FeatureCompat = CompatFeatures(le.Uint32(buf[0x5C:]))
	sb.FeatureIncompat = IncompatFeatures(le.Uint32(buf[0x60:]))
	sb.FeatureRoCompat = RoCompatFeatures(le.Uint32(buf[0x64:]))
	copy(sb.UUID[:], buf[0x68:0x78])
	copy(sb.VolumeName[:], buf[0x78:0x88])
	copy(sb.LastMounted[:], buf[0x88:0xC8])
	sb.AlgorithmUsageBitmap = le.Uint32(buf[0xC8:])

	sb.PreallocBlocks = buf[0xCC]
	sb.PreallocDirBlocks = buf[0xCD]
	sb.ReservedGDTBlocks = le.Uint16(buf[0xCE:])

	copy(sb.JournalUUID[:], buf[0xD0:0xE0])
	sb.JournalInum = le.Uint32(buf[0xE0:])
	sb.JournalDev = le.Uint32(buf[0xE4:])
	sb.LastOrphan = le.Uint32(buf[0xE8:])
	for i := 0; i < 4; i++ {
		sb.HashSeed[i] = le.Uint32(buf[0xEC+4*i:])
	}
	sb.DefHashVersion = buf[0xFC]
	sb.JnlBackupType = buf[0xFD]
	sb.DescSize = le.Uint16(buf[0xFE:])
	sb.DefaultMountOpts = DefMountOpts(le.Uint32(buf[0x100:]))
	sb.FirstMetaBG = le.Uint32(buf[0x104:])
	sb.MkfsTime = le.Uint32(buf[0x108:])
	for i := 0; i < 17; i++ {
		sb.JnlBlocks[i] = le.Uint32(buf[0x10C+4*i:])
	}

	sb.BlocksCountHi = le.Uint32(buf[0x150:])
	sb.RBlocksCountHi = le.Uint32(buf[0x154:])
	sb.FreeBlocksCountHi = le.Uint32(buf[0x158:])
	sb.MinExtraIsize = le.Uint16(buf[0x15C:])
	sb.WantExtraIsize = le.Uint16(buf[0x15E:])
	sb.Flags = SuperblockFlags(le.Uint32(buf[0x160:]))
	sb.RaidStride = le.Uint16(buf[0x164:])
	sb.MmpInterval = le.Uint16(buf[0x166:])
	sb.MmpBlock = le.Uint64(buf[0x168:])
	sb.RaidStripeWidth = le.Uint32(buf[0x170:])
	sb.LogGroupsPerFlex = buf[0x174]
	sb.ChecksumType = buf[0x175]
	sb.KbytesWritten = le.Uint64(buf[0x178:])

	sb.OverheadBlocks = le.Uint32(buf[0x248:])
	sb.BackupBGs[0] = le.Uint32(buf[0x24C:])
	sb.BackupBGs[1] = le.Uint32(buf[0x250:])
	copy(sb.EncryptAlgos[:], buf[0x254:0x258])
	sb.ChecksumSeed = le.Uint32(buf[0x270:])
	sb.Encoding = le.Uint16(buf[0x27C:])
	sb.EncodingFlags = le.Uint16(buf[0x27E:])
	sb.Checksum = le.Uint32(buf[0x3FC:])

	return sb, nil
}

// BlockSize returns the filesystem's block size in bytes, derived from
// s_log_block_size per the usual ext2/3/4 convention of 1024 << n.
func (sb *Superblock) BlockSize() uint64 {
	return 1024 << sb.LogBlockSize
}

// BlocksCount returns the total block count, combining the low and (if
// the 64bit incompat feature is set) high 32 bits.
func (sb *Superblock) BlocksCount() uint64 {
	count := uint64(sb.BlocksCountLo)
	if sb.FeatureIncompat.Has64Bit() {
		count |= uint64(sb.BlocksCountHi) << 32
	}
	return count
}

// DescSizeEffective returns the on-disk group descriptor size: s_desc_size
// when the 64bit incompat feature is set and s_desc_size records a value
// greater than the legacy 32, 32 bytes otherwise.
func (sb *Superblock) DescSizeEffective() uint32 {
	if sb.FeatureIncompat.Has64Bit() && sb.DescSize > 32 {
		return uint32(sb.DescSize)
	}
	return 32
}

// InodeSizeEffective returns the on-disk inode record size: the dynamic
// revision's s_inode_size field, or the fixed 128-byte legacy size for
// EXT2_GOOD_OLD_REV filesystems.
func (sb *Superblock) InodeSizeEffective() uint32 {
	if sb.RevLevel == uint32(RevisionGoodOld) {
		return 128
	}
	return uint32(sb.InodeSize)
}
