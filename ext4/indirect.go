package ext4

import (
	"encoding/binary"
	"io"
)

// WalkIndirectBlocks resolves the legacy (non-extent) block mapping
// scheme: 12 direct pointers followed by single, double, and triple
// indirect pointers, each held in i_block as a raw 32-bit block number.
// It returns the physical block number of every data block referenced,
// in logical-block order, clipped to the number of blocks the inode
// actually needs (sizeInBlocks). The indirect blocks' own physical
// locations are not reported: this walker only resolves the data
// mapping, mirroring the original scanner's behavior of never marking
// indirect-table blocks used in their own right (a documented gap: the
// indirect tables themselves stay Free in the usage map unless something
// else marks them).
func WalkIndirectBlocks(iBlock []byte, drive io.ReaderAt, blockSize uint64, sizeInBlocks uint64) ([]uint64, error) {
	le := binary.LittleEndian
	if len(iBlock) < 60 {
		return nil, decodeErrorf("inode.i_block", "buffer too small for legacy block map")
	}

	var out []uint64
	blockHead := uint64(0)

	emit := func(physical uint32) {
		if blockHead >= sizeInBlocks {
			return
		}
		if physical != 0 {
			out = append(out, uint64(physical))
		}
		blockHead++
	}

	for i := 0; i < 12 && blockHead < sizeInBlocks; i++ {
		emit(le.Uint32(iBlock[i*4:]))
	}

	if blockHead >= sizeInBlocks {
		return out, nil
	}

	entriesPerBlock := blockSize / 4

	var walkSingle func(block uint32) error
	walkSingle = func(block uint32) error {
		if block == 0 {
			blockHead += entriesPerBlock
			return nil
		}
		buf := make([]byte, blockSize)
		if _, err := drive.ReadAt(buf, int64(block)*int64(blockSize)); err != nil {
			return ioErrorf("read indirect block", int64(block)*int64(blockSize), err)
		}
		for i := uint64(0); i < entriesPerBlock; i++ {
			if blockHead >= sizeInBlocks {
				return nil
			}
			emit(le.Uint32(buf[i*4:]))
		}
		return nil
	}

	var walkDouble func(block uint32) error
	walkDouble = func(block uint32) error {
		if block == 0 {
			blockHead += entriesPerBlock * entriesPerBlock
			return nil
		}
		buf := make([]byte, blockSize)
		if _, err := drive.ReadAt(buf, int64(block)*int64(blockSize)); err != nil {
			return ioErrorf("read double indirect block", int64(block)*int64(blockSize), err)
		}
		for i := uint64(0); i < entriesPerBlock; i++ {
			if blockHead >= sizeInBlocks {
				return nil
			}
			if err := walkSingle(le.Uint32(buf[i*4:])); err != nil {
				return err
			}
		}
		return nil
	}

	var walkTriple func(block uint32) error
	walkTriple = func(block uint32) error {
		if block == 0 {
			blockHead += entriesPerBlock * entriesPerBlock * entriesPerBlock
			return nil
		}
		buf := make([]byte, blockSize)
		if _, err := drive.ReadAt(buf, int64(block)*int64(blockSize)); err != nil {
			return ioErrorf("read triple indirect block", int64(block)*int64(blockSize), err)
		}
		for i := uint64(0); i < entriesPerBlock; i++ {
			if blockHead >= sizeInBlocks {
				return nil
			}
			if err := walkDouble(le.Uint32(buf[i*4:])); err != nil {
				return err
			}
		}
		return nil
	}

	if blockHead < sizeInBlocks {
		if err := walkSingle(le.Uint32(iBlock[12*4:])); err != nil {
			return nil, err
		}
	}
	if blockHead < sizeInBlocks {
		if err := walkDouble(le.Uint32(iBlock[13*4:])); err != nil {
			return nil, err
		}
	}
	if blockHead < sizeInBlocks {
		if err := walkTriple(le.Uint32(iBlock[14*4:])); err != nil {
			return nil, err
		}
	}

	return out, nil
}
