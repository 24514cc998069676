// Package scan walks an ext2/3/4 filesystem's metadata read-only,
// classifying every block as Free or Used in a usagemap.Map. It never
// writes to the drive; that is fill's job.
package scan

import (
	"fmt"
	"io"

	"github.com/blkscrub/blkscrub/backend"
	"github.com/blkscrub/blkscrub/ext4"
	"github.com/blkscrub/blkscrub/logging"
	"github.com/blkscrub/blkscrub/usagemap"
	"github.com/blkscrub/blkscrub/util/bitmap"
)

// Context threads the drive and logger through every scan function,
// replacing what would otherwise be package-level globals.
type Context struct {
	Drive  backend.File
	Logger logging.Logger

	IgnoreRecovery bool
	IgnoreReadonly bool
}

// Result is everything a caller needs after a successful scan: the
// derived filesystem parameters and the resulting usage map.
type Result struct {
	Fs  *ext4.Fs
	Map *usagemap.Map
}

// Run reads the superblock and group descriptor table, validates the
// filesystem's feature flags, and scans every block group, returning the
// completed usage map.
func Run(ctx *Context) (*Result, error) {
	sbBuf := make([]byte, ext4.SuperblockSize)
	if _, err := ctx.Drive.ReadAt(sbBuf, ext4.SuperblockOffset); err != nil {
		return nil, err
	}
	sb, err := ext4.DecodeSuperblock(sbBuf)
	if err != nil {
		return nil, err
	}

	opts, err := ext4.ValidateOptions(sb, ctx.IgnoreRecovery, ctx.IgnoreReadonly)
	if err != nil {
		return nil, err
	}
	if opts.Incompat.HasRecover() {
		ctx.Logger.Warnf("filesystem needs journal recovery; continuing because --ignore-recovery is set")
	}
	if opts.RoCompat.HasReadonly() {
		ctx.Logger.Warnf("filesystem is marked read-only; continuing because --ignore-readonly is set")
	}

	fs, err := ext4.DeriveFs(sb)
	if err != nil {
		return nil, err
	}

	gdtSize := uint64(fs.BGCount) * uint64(fs.DescSize)
	gdtBuf := make([]byte, gdtSize)
	if _, err := ctx.Drive.ReadAt(gdtBuf, int64(fs.StartOfFirstGDT())); err != nil {
		return nil, err
	}
	descs, err := ext4.DecodeGroupDescriptorTable(gdtBuf, fs.BGCount, fs.DescSize)
	if err != nil {
		return nil, err
	}
	fs.Descriptors = descs

	m := usagemap.New(fs.BlocksCount * fs.BlockSize)

	for bg := uint32(0); bg < fs.BGCount; bg++ {
		ctx.Logger.Debugf("scanning block group %d/%d", bg+1, fs.BGCount)
		if err := scanRegularBG(ctx, fs, m, bg); err != nil {
			return nil, fmt.Errorf("block group %d: %w", bg, err)
		}
	}

	return &Result{Fs: fs, Map: m}, nil
}

func markUsed(m *usagemap.Map, offset, size uint64) {
	m.Update(offset, size, usagemap.Used)
}

// scanRegularBG marks a single block group's own metadata (superblock
// backup, group descriptor table backup, bitmaps, inode table) Used, then
// walks every allocated inode in that group.
func scanRegularBG(ctx *Context, fs *ext4.Fs, m *usagemap.Map, bg uint32) error {
	bgStart := fs.StartOfBG(bg)
	skipSuper := false
	if fs.Sb.FeatureCompat.HasSparseSuper2() {
		skipSuper = bg != fs.Sb.BackupBGs[0] && bg != fs.Sb.BackupBGs[1]
	} else if fs.Sb.FeatureRoCompat.HasSparseSuper() {
		skipSuper = bg != 0 && !isSparseSuperBackupGroup(bg)
	}

	if bg == 0 {
		markUsed(m, 0, 2048)
	} else if !skipSuper {
		markUsed(m, bgStart, 1024)
	}

	if !skipSuper {
		gdtBytes := uint64(fs.BGCount) * uint64(fs.DescSize)
		gdtBlocks := (gdtBytes + fs.BlockSize - 1) / fs.BlockSize
		gdtStart := bgStart + fs.BlockSize
		if bg == 0 {
			gdtStart = fs.StartOfFirstGDT()
		}

		if fs.HasMetadataChecksum {
			if err := markVerifiedGDTBackup(ctx, fs, m, gdtStart, gdtBytes); err != nil {
				return err
			}
		} else {
			markUsed(m, gdtStart, gdtBytes)
		}

		reserved := uint64(fs.Sb.ReservedGDTBlocks) * fs.BlockSize
		markUsed(m, gdtStart+gdtBlocks*fs.BlockSize, reserved)
	}

	gd := &fs.Descriptors[bg]

	if fs.HasMetadataChecksum && !gd.VerifyChecksum(bg, fs.ChecksumSeed, fs.DescSize) {
		ctx.Logger.Warnf("block group %d: group descriptor checksum mismatch, skipping", bg)
		return nil
	}
	if gd.Flags.HasUnknown() {
		return &ext4.DecodeError{Entity: "group descriptor bg_flags", Reason: "unknown bits set"}
	}

	if !gd.Flags.HasBlockUninit() {
		markUsed(m, gd.BlockBitmap()*fs.BlockSize, fs.BlockSize)
	}
	if !gd.Flags.HasInodeUninit() {
		markUsed(m, gd.InodeBitmap()*fs.BlockSize, fs.BlockSize)
	}

	inodeTableBlocks := (uint64(fs.Sb.InodesPerGroup)*uint64(fs.InodeSize) + fs.BlockSize - 1) / fs.BlockSize
	if gd.Flags.HasInodeZeroed() {
		markUsed(m, gd.InodeTable()*fs.BlockSize, inodeTableBlocks*fs.BlockSize)
	} else if !gd.Flags.HasInodeUninit() {
		return &ext4.UnsupportedFeatureError{Feature: "partially-initialized inode table (neither INODE_ZEROED nor INODE_UNINIT set)"}
	}

	if gd.Flags.HasInodeUninit() {
		return nil
	}

	return scanInodeTable(ctx, fs, m, bg, gd)
}

// markVerifiedGDTBackup reads this group's backup copy of the group
// descriptor table and marks Used only the descriptor slots whose
// checksum verifies, per the metadata_csum scheme: a backup copy torn by
// a partial write is otherwise indistinguishable from free space.
func markVerifiedGDTBackup(ctx *Context, fs *ext4.Fs, m *usagemap.Map, start, size uint64) error {
	buf := make([]byte, size)
	if _, err := ctx.Drive.ReadAt(buf, int64(start)); err != nil {
		return err
	}
	descs, err := ext4.DecodeGroupDescriptorTable(buf, fs.BGCount, fs.DescSize)
	if err != nil {
		ctx.Logger.Warnf("group descriptor table backup at offset %d is corrupt, leaving unmarked: %v", start, err)
		return nil
	}
	for i := range descs {
		if descs[i].VerifyChecksum(uint32(i), fs.ChecksumSeed, fs.DescSize) {
			markUsed(m, start+uint64(i)*uint64(fs.DescSize), uint64(fs.DescSize))
		}
	}
	return nil
}

// isSparseSuperBackupGroup reports whether group bg carries a superblock
// and group descriptor table backup under the sparse_super convention:
// groups 0, 1, and powers of 3, 5, and 7.
func isSparseSuperBackupGroup(bg uint32) bool {
	if bg <= 1 {
		return true
	}
	for _, base := range []uint32{3, 5, 7} {
		p := base
		for p <= bg {
			if p == bg {
				return true
			}
			p *= base
		}
	}
	return false
}

func scanInodeTable(ctx *Context, fs *ext4.Fs, m *usagemap.Map, bg uint32, gd *ext4.GroupDescriptor) error {
	unused := gd.ItableUnused()
	count := fs.Sb.InodesPerGroup
	if unused > count {
		unused = 0
	}
	active := count - unused

	bitmapBuf := make([]byte, fs.BlockSize)
	if _, err := ctx.Drive.ReadAt(bitmapBuf, int64(gd.InodeBitmap()*fs.BlockSize)); err != nil {
		return err
	}
	bm := bitmap.FromBytes(bitmapBuf)

	tableBuf := make([]byte, uint64(active)*uint64(fs.InodeSize))
	if _, err := ctx.Drive.ReadAt(tableBuf, int64(gd.InodeTable()*fs.BlockSize)); err != nil {
		return err
	}

	for i := uint32(0); i < active; i++ {
		set, err := bm.IsSet(int(i))
		if err != nil {
			return &ext4.InternalInvariantError{Reason: err.Error()}
		}
		if !set {
			continue
		}
		entry := tableBuf[uint64(i)*uint64(fs.InodeSize):]
		if uint64(len(entry)) < ext4.InodeRecordSize {
			break
		}
		if err := scanInode(ctx, fs, m, bg, i, entry); err != nil {
			return fmt.Errorf("inode %d: %w", bg*fs.Sb.InodesPerGroup+i+1, err)
		}
	}
	return nil
}

func scanInode(ctx *Context, fs *ext4.Fs, m *usagemap.Map, bg uint32, index uint32, buf []byte) error {
	in, err := ext4.DecodeInode(buf)
	if err != nil {
		return err
	}

	typ, err := ext4.ClassifyInode(in, bg, index, fs.Sb.InodesPerGroup, fs.Sb.FirstIno)
	if err != nil {
		return err
	}

	var result error
	switch typ {
	case ext4.InodeTypeReservedEmpty, ext4.InodeTypeJournal, ext4.InodeTypeExtendedAttribute:
		result = nil
	case ext4.InodeTypeRegular, ext4.InodeTypeDirectory, ext4.InodeTypeSymlink,
		ext4.InodeTypeBlockDevice, ext4.InodeTypeCharDevice, ext4.InodeTypeFIFO, ext4.InodeTypeSocket:
		result = scanRegularIblock(ctx, fs, m, in)
	default:
		return &ext4.InternalInvariantError{Reason: "unreachable inode classification"}
	}
	if result != nil {
		return result
	}

	if in.Flags.HasVerity() {
		return &ext4.UnsupportedFeatureError{Feature: "verity"}
	}

	return nil
}

// scanRegularIblock marks the data blocks referenced by a data-bearing
// inode (regular files, directories, symlinks with block-backed
// targets, and special files that happen to carry block pointers) as
// Used, dispatching to the extent tree walker or the legacy indirect
// walker depending on i_flags.
func scanRegularIblock(ctx *Context, fs *ext4.Fs, m *usagemap.Map, in *ext4.Inode) error {
	if in.Flags.HasInlineData() {
		return nil
	}

	blockCount, err := in.BlockCount(fs)
	if err != nil {
		return err
	}
	if blockCount == 0 {
		return nil
	}

	drive := readerAt{ctx.Drive}

	if in.Flags.HasExtents() {
		fileSize := in.Size()
		extents, err := ext4.WalkExtentTree(in.Block[:], drive, fs.BlockSize, func(offset, size uint64) {
			markUsed(m, offset, size)
		})
		if err != nil {
			return err
		}
		for _, e := range extents {
			logicalStart := uint64(e.Block) * fs.BlockSize
			if logicalStart >= fileSize {
				continue
			}
			length := uint64(e.Length()) * fs.BlockSize
			if logicalStart+length > fileSize {
				length = fileSize - logicalStart
			}
			markUsed(m, e.PhysicalStart()*fs.BlockSize, length)
		}
		return nil
	}

	sizeInBlocks := (in.Size() + fs.BlockSize - 1) / fs.BlockSize
	blocks, err := ext4.WalkIndirectBlocks(in.Block[:], drive, fs.BlockSize, sizeInBlocks)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		markUsed(m, b*fs.BlockSize, fs.BlockSize)
	}
	return nil
}

// readerAt adapts backend.File (io.ReaderAt) to the plain io.ReaderAt
// the ext4 package's tree walkers expect, so that package need not
// import backend.
type readerAt struct {
	f interface {
		ReadAt(p []byte, off int64) (int, error)
	}
}

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	return r.f.ReadAt(p, off)
}

var _ io.ReaderAt = readerAt{}
