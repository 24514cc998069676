package ext4

import (
	"encoding/binary"
	"testing"
)

func buildOneDescriptor(blockBitmap, inodeBitmap, inodeTable uint32, flags BgFlags) []byte {
	buf := make([]byte, 32)
	le := binary.LittleEndian
	le.PutUint32(buf[0x00:], blockBitmap)
	le.PutUint32(buf[0x04:], inodeBitmap)
	le.PutUint32(buf[0x08:], inodeTable)
	le.PutUint16(buf[0x12:], uint16(flags))
	return buf
}

func TestDecodeGroupDescriptorTable(t *testing.T) {
	buf := buildOneDescriptor(10, 11, 12, bgFlagInodeUninit)
	descs, err := DecodeGroupDescriptorTable(buf, 1, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descs) != 1 {
		t.Fatalf("len(descs) = %d, want 1", len(descs))
	}
	gd := descs[0]
	if gd.BlockBitmap() != 10 || gd.InodeBitmap() != 11 || gd.InodeTable() != 12 {
		t.Fatalf("unexpected decoded locations: %+v", gd)
	}
	if !gd.Flags.HasInodeUninit() {
		t.Fatal("expected inode_uninit flag to decode")
	}
}

func TestDecodeGroupDescriptorTableShortBuffer(t *testing.T) {
	if _, err := DecodeGroupDescriptorTable(make([]byte, 10), 2, 32); err == nil {
		t.Fatal("expected short buffer to be rejected")
	}
}

func TestGroupDescriptor64BitLocations(t *testing.T) {
	buf := make([]byte, 64)
	le := binary.LittleEndian
	le.PutUint32(buf[0x00:], 5)
	le.PutUint32(buf[0x20:], 1) // block_bitmap_hi
	descs, err := DecodeGroupDescriptorTable(buf, 1, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := uint64(5) | uint64(1)<<32
	if descs[0].BlockBitmap() != want {
		t.Fatalf("BlockBitmap() = %d, want %d", descs[0].BlockBitmap(), want)
	}
}
