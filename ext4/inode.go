package ext4

import "encoding/binary"

// InodeRecordSize is the minimum on-disk inode record size covered by this
// decoder; larger, dynamic-revision inode sizes carry extra fields this
// tool does not need (extended attributes, nanosecond timestamps).
const InodeRecordSize = 128

// InodeType classifies an inode by the precedence rules applied during a
// scan: reserved journal inode, extended-attribute inode, then file type
// bits, with a final allowance for the zeroed placeholder slots below
// first_ino on group zero.
type InodeType int

const (
	InodeTypeInvalid InodeType = iota
	InodeTypeRegular
	InodeTypeDirectory
	InodeTypeSymlink
	InodeTypeBlockDevice
	InodeTypeCharDevice
	InodeTypeFIFO
	InodeTypeSocket
	InodeTypeJournal
	InodeTypeExtendedAttribute
	InodeTypeReservedEmpty
)

// Osd2Linux is the Linux-specific view of the OS-dependent inode tail
// (osd2), which carries the high 16 bits of i_blocks for huge files.
type Osd2Linux struct {
	BlocksHigh uint16
	FileACLHigh uint16
	UIDHigh     uint16
	GIDHigh     uint16
	ChecksumLo  uint16
}

// Inode is the decoded fixed 128-byte inode record.
type Inode struct {
	Mode       IMode
	UID        uint16
	SizeLo     uint32
	Atime      uint32
	Ctime      uint32
	Mtime      uint32
	Dtime      uint32
	GID        uint16
	LinksCount uint16
	BlocksLo   uint32
	Flags      IFlags
	Block      [60]byte // i_block: either 15 x u32 legacy pointers, or an extent tree
	Generation uint32
	FileACLLo  uint32
	SizeHigh   uint32
	FragAddr   uint32
	Osd2       Osd2Linux
}

// DecodeInode parses a 128-byte inode record. Larger, dynamic-revision
// inode sizes are accepted (the caller slices the right InodeSizeEffective
// window out of the inode table) but only the first 128 bytes are decoded.
func DecodeInode(buf []byte) (*Inode, error) {
	if len(buf) < InodeRecordSize {
		return nil, decodeErrorf("inode", "buffer too small: got %d bytes, need %d", len(buf), InodeRecordSize)
	}

	le := binary.LittleEndian
	in := &Inode{}

	in.Mode = IMode(le.Uint16(buf[0x00:]))
	in.UID = le.Uint16(buf[0x02:])
	in.SizeLo = le.Uint32(buf[0x04:])
	in.Atime = le.Uint32(buf[0x08:])
	in.Ctime = le.Uint32(buf[0x0C:])
	in.Mtime = le.Uint32(buf[0x10:])
	in.Dtime = le.Uint32(buf[0x14:])
	in.GID = le.Uint16(buf[0x18:])
	in.LinksCount = le.Uint16(buf[0x1A:])
	in.BlocksLo = le.Uint32(buf[0x1C:])
	in.Flags = IFlags(le.Uint32(buf[0x20:]))
	copy(in.Block[:], buf[0x28:0x64])
	in.Generation = le.Uint32(buf[0x64:])
	in.FileACLLo = le.Uint32(buf[0x68:])
	in.SizeHigh = le.Uint32(buf[0x6C:])
	in.FragAddr = le.Uint32(buf[0x70:])

	in.Osd2.BlocksHigh = le.Uint16(buf[0x74:])
	in.Osd2.FileACLHigh = le.Uint16(buf[0x76:])
	in.Osd2.UIDHigh = le.Uint16(buf[0x78:])
	in.Osd2.GIDHigh = le.Uint16(buf[0x7A:])
	in.Osd2.ChecksumLo = le.Uint16(buf[0x7C:])

	if in.Flags.HasUnknown() {
		return nil, decodeErrorf("inode.i_flags", "unknown bits %#x", in.Flags.GetUnknown())
	}
	if in.Flags.HasEncrypt() {
		return nil, unsupportedFeaturef("encrypt (per-inode)")
	}
	if in.Flags.HasImagic() {
		return nil, unsupportedFeaturef("imagic_inodes")
	}
	if in.Flags.HasCompr() || in.Flags.HasComprblk() {
		return nil, unsupportedFeaturef("compression")
	}
	if in.Flags.HasSnapfile() || in.Flags.HasSnapfileDeleted() || in.Flags.HasSnapfileShrunk() {
		return nil, unsupportedFeaturef("snapshot inode")
	}

	return in, nil
}

// Size returns the inode's logical byte size, always combining i_size_lo
// with i_size_high as the upper 32 bits.
func (in *Inode) Size() uint64 {
	return uint64(in.SizeLo) | uint64(in.SizeHigh)<<32
}

// BlockCount returns the number of filesystem blocks consumed by this
// inode, per get_block_count in the original scanner: i_blocks_lo is
// extended with osd2's high 16 bits when ro_compat huge_file is set,
// read as 512-byte sectors (or filesystem blocks, if i_flags also has
// huge_file), then scaled down to filesystem blocks.
func (in *Inode) BlockCount(fs *Fs) (uint64, error) {
	raw := uint64(in.BlocksLo)
	if fs.Sb.FeatureRoCompat.HasHugeFile() {
		raw |= uint64(in.Osd2.BlocksHigh) << 32
	}

	unit := uint64(512)
	if fs.Sb.FeatureRoCompat.HasHugeFile() && in.Flags.HasHugeFile() {
		unit = fs.BlockSize
	}

	bytes := raw * unit
	if bytes%fs.BlockSize != 0 {
		return 0, &InternalInvariantError{Reason: "inode block count does not divide evenly by filesystem block size"}
	}
	return bytes / fs.BlockSize, nil
}

// ClassifyInode applies the type-precedence rules used by the group
// scanner: the reserved journal inode slot, then extended-attribute
// inodes, then the file-type bits in i_mode, with an allowance for
// zeroed placeholder slots reserved below s_first_ino on block group
// zero.
func ClassifyInode(in *Inode, bgNum uint32, indexInGroup uint32, inodesPerGroup uint32, firstIno uint32) (InodeType, error) {
	inodeNum := bgNum*inodesPerGroup + indexInGroup + 1

	if bgNum == 0 && inodeNum == 8 {
		return InodeTypeJournal, nil
	}
	if in.Flags.HasEAInode() {
		return InodeTypeExtendedAttribute, nil
	}

	switch {
	case in.Mode.HasIFSock():
		return InodeTypeSocket, nil
	case in.Mode.HasIFLnk():
		return InodeTypeSymlink, nil
	case in.Mode.HasIFBlk():
		return InodeTypeBlockDevice, nil
	case in.Mode.HasIFReg():
		return InodeTypeRegular, nil
	case in.Mode.HasIFDir():
		return InodeTypeDirectory, nil
	case in.Mode.HasIFChr():
		return InodeTypeCharDevice, nil
	case in.Mode.HasIFIFO():
		return InodeTypeFIFO, nil
	}

	if bgNum == 0 && in.Mode == 0 && inodeNum < firstIno {
		return InodeTypeReservedEmpty, nil
	}

	return InodeTypeInvalid, decodeErrorf("inode.i_mode", "unrecognized file type in mode %#04x (inode %d)", uint16(in.Mode), inodeNum)
}
