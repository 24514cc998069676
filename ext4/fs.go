package ext4

import (
	"github.com/blkscrub/blkscrub/crc"
)

// Fs bundles a decoded superblock and group descriptor table with the
// derived parameters every other component needs: block size, group
// count and size, effective descriptor/inode sizes, and the checksum
// seed used by metadata_csum verification.
type Fs struct {
	Sb          *Superblock
	Descriptors []GroupDescriptor

	BlockSize    uint64
	BlocksCount  uint64
	BGCount      uint32
	BGSize       uint64
	DescSize     uint32
	InodeSize    uint32
	ChecksumSeed uint32

	HasGDTChecksum     bool
	HasMetadataChecksum bool
}

// DeriveFs computes the parameters in Fs from an already-decoded
// superblock. It does not read the group descriptor table; callers fill
// Descriptors in separately once they've read s_desc_size * bg_count
// bytes from start_of_first_gdt.
func DeriveFs(sb *Superblock) (*Fs, error) {
	blockSize := sb.BlockSize()
	blocksCount := sb.BlocksCount()
	if sb.BlocksPerGroup == 0 {
		return nil, decodeErrorf("superblock", "s_blocks_per_group is zero")
	}

	dataBlocks := uint64(0)
	if blocksCount > uint64(sb.FirstDataBlock) {
		dataBlocks = blocksCount - uint64(sb.FirstDataBlock)
	}
	bgCount := uint32((dataBlocks + uint64(sb.BlocksPerGroup) - 1) / uint64(sb.BlocksPerGroup))
	if bgCount == 0 {
		return nil, decodeErrorf("superblock", "computed zero block groups")
	}

	fs := &Fs{
		Sb:          sb,
		BlockSize:   blockSize,
		BlocksCount: blocksCount,
		BGCount:     bgCount,
		BGSize:      uint64(sb.BlocksPerGroup) * blockSize,
		DescSize:    sb.DescSizeEffective(),
		InodeSize:   sb.InodeSizeEffective(),
	}

	fs.HasGDTChecksum = sb.FeatureRoCompat.HasGDTCsum()
	fs.HasMetadataChecksum = sb.FeatureRoCompat.HasMetadataCsum()

	if fs.HasMetadataChecksum || sb.FeatureIncompat.HasEAInode() {
		seed := sb.ChecksumSeed
		if !sb.FeatureIncompat.HasCsumSeed() {
			seed = crc.Ext4(^uint32(0), sb.UUID[:])
		}
		fs.ChecksumSeed = seed
	}

	return fs, nil
}

// StartOfBG returns the byte offset of the first block in block group n.
func (fs *Fs) StartOfBG(n uint32) uint64 {
	return uint64(fs.Sb.FirstDataBlock)*fs.BlockSize + uint64(n)*fs.BGSize
}

// StartOfFirstGDT returns the byte offset of the group descriptor table,
// immediately following the superblock's own block.
func (fs *Fs) StartOfFirstGDT() uint64 {
	if fs.BlockSize == 1024 {
		return 2048
	}
	return fs.BlockSize
}

// FsOptions is the validated view over the superblock's feature fields,
// built by ValidateOptions. Constructing it rejects any combination of
// flags this tool does not know how to scan safely.
type FsOptions struct {
	State        State
	Errors       ErrorPolicy
	Creator      Creator
	Revision     Revision
	Compat       CompatFeatures
	Incompat     IncompatFeatures
	RoCompat     RoCompatFeatures
	HashVersion  HashVersion
	MountOpts    DefMountOpts
	Flags        SuperblockFlags
	EncryptAlgos [4]EncryptAlgo

	IgnoreRecovery bool
	IgnoreReadonly bool
}

// ValidateOptions decodes and validates the superblock's enumerated and
// flag fields, returning an UnsupportedFeatureError or DecodeError for
// anything this scanner cannot safely operate on. ignoreRecovery and
// ignoreReadonly correspond to the tool's -R/-O command-line escape
// hatches: without them, a filesystem needing journal recovery or
// mounted read-only is refused outright.
func ValidateOptions(sb *Superblock, ignoreRecovery, ignoreReadonly bool) (*FsOptions, error) {
	opts := &FsOptions{IgnoreRecovery: ignoreRecovery, IgnoreReadonly: ignoreReadonly}

	if sb.State.HasUnknown() {
		return nil, decodeErrorf("superblock.s_state", "unknown bits %#x", sb.State.GetUnknown())
	}
	opts.State = sb.State
	if sb.State.HasError() {
		return nil, filesystemStatef("filesystem was not cleanly unmounted (s_state indicates errors)")
	}
	if sb.State.HasFCReplay() {
		return nil, filesystemStatef("filesystem has an unreplayed fast commit journal")
	}

	errPolicy, ok := decodeErrorPolicy(sb.Errors)
	if !ok {
		return nil, decodeErrorf("superblock.s_errors", "unrecognized value %d", sb.Errors)
	}
	opts.Errors = errPolicy

	creator, ok := decodeCreator(sb.CreatorOS)
	if !ok {
		return nil, decodeErrorf("superblock.s_creator_os", "unrecognized value %d", sb.CreatorOS)
	}
	opts.Creator = creator

	revision, ok := decodeRevision(sb.RevLevel)
	if !ok {
		return nil, decodeErrorf("superblock.s_rev_level", "unrecognized value %d", sb.RevLevel)
	}
	opts.Revision = revision

	if revision == RevisionGoodOld {
		return opts, nil
	}

	compat := sb.FeatureCompat
	if compat.HasUnknown() {
		return nil, decodeErrorf("superblock.s_feature_compat", "unknown bits %#x", compat.GetUnknown())
	}
	opts.Compat = compat

	incompat := sb.FeatureIncompat
	if incompat.HasUnknown() {
		return nil, decodeErrorf("superblock.s_feature_incompat", "unknown bits %#x", incompat.GetUnknown())
	}
	if incompat.HasRecover() && !ignoreRecovery {
		return nil, filesystemStatef("filesystem needs journal recovery")
	}
	if incompat.HasJournalDev() {
		return nil, unsupportedFeaturef("journal_dev")
	}
	if incompat.HasMetaBG() {
		return nil, unsupportedFeaturef("meta_bg")
	}
	if incompat.HasDirdata() {
		return nil, unsupportedFeaturef("dirdata")
	}
	if incompat.HasEncrypt() {
		return nil, unsupportedFeaturef("encrypt")
	}
	opts.Incompat = incompat

	roCompat := sb.FeatureRoCompat
	if roCompat.HasUnknown() {
		return nil, decodeErrorf("superblock.s_feature_ro_compat", "unknown bits %#x", roCompat.GetUnknown())
	}
	if roCompat.HasReadonly() && !ignoreReadonly {
		return nil, filesystemStatef("filesystem is marked read-only (RO_COMPAT_READONLY)")
	}
	if roCompat.HasSharedBlocks() {
		return nil, unsupportedFeaturef("shared_blocks")
	}
	if roCompat.HasGDTCsum() && roCompat.HasMetadataCsum() {
		return nil, decodeErrorf("superblock.s_feature_ro_compat", "gdt_csum and metadata_csum both set")
	}
	if roCompat.HasGDTCsum() {
		return nil, unsupportedFeaturef("gdt_csum")
	}
	opts.RoCompat = roCompat

	if compat.HasHasJournal() {
		hv, ok := decodeHashVersion(sb.DefHashVersion)
		if !ok {
			return nil, decodeErrorf("superblock.s_def_hash_version", "unrecognized value %d", sb.DefHashVersion)
		}
		opts.HashVersion = hv

		mountOpts := sb.DefaultMountOpts
		if mountOpts.HasUnknown() {
			return nil, decodeErrorf("superblock.s_default_mount_opts", "unknown bits %#x", mountOpts.GetUnknown())
		}
		opts.MountOpts = mountOpts
	}

	if incompat.Has64Bit() {
		flags := sb.Flags
		if flags.HasUnknown() {
			return nil, decodeErrorf("superblock.s_flags", "unknown bits %#x", flags.GetUnknown())
		}
		if flags.HasFixSnapshot() {
			return nil, decodeErrorf("superblock.s_flags", "fix_snapshot set outside of a repair tool")
		}
		if flags.HasFixExclude() {
			return nil, decodeErrorf("superblock.s_flags", "fix_exclude set outside of a repair tool")
		}
		opts.Flags = flags

		if incompat.HasEncrypt() {
			for i, raw := range sb.EncryptAlgos {
				algo, ok := decodeEncryptAlgo(raw)
				if !ok || algo == EncryptAlgoInvalid {
					return nil, decodeErrorf("superblock.s_encrypt_algos", "unrecognized value %d at slot %d", raw, i)
				}
				opts.EncryptAlgos[i] = algo
			}
		}
	}

	return opts, nil
}
