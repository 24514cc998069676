package ext4

import (
	"encoding/binary"
	"testing"
)

type fakeDrive struct {
	data []byte
}

func (d *fakeDrive) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, d.data[off:]), nil
}

func buildExtentLeaf(entries []Extent, maxEntries uint16) []byte {
	buf := make([]byte, extentHeaderSize+len(entries)*extentRecordSize)
	le := binary.LittleEndian
	le.PutUint16(buf[0:], extentHeaderMagic)
	le.PutUint16(buf[2:], uint16(len(entries)))
	le.PutUint16(buf[4:], maxEntries)
	le.PutUint16(buf[6:], 0) // depth 0: leaf

	for i, e := range entries {
		off := extentHeaderSize + i*extentRecordSize
		le.PutUint32(buf[off:], e.Block)
		le.PutUint16(buf[off+4:], e.Len)
		le.PutUint16(buf[off+6:], e.StartHi)
		le.PutUint32(buf[off+8:], e.StartLo)
	}
	return buf
}

func TestWalkExtentTreeSingleLeaf(t *testing.T) {
	entries := []Extent{
		{Block: 0, Len: 4, StartLo: 100},
		{Block: 4, Len: 2, StartLo: 200},
	}
	root := buildExtentLeaf(entries, 4)
	padded := make([]byte, 60)
	copy(padded, root)

	got, err := WalkExtentTree(padded, &fakeDrive{}, 1024, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].PhysicalStart() != 100 || got[1].PhysicalStart() != 200 {
		t.Fatalf("unexpected extents: %+v", got)
	}
}

func TestWalkExtentTreeRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 60)
	if _, err := WalkExtentTree(buf, &fakeDrive{}, 1024, nil); err == nil {
		t.Fatal("expected bad magic to be rejected")
	}
}

func TestExtentUninitialized(t *testing.T) {
	e := Extent{Len: 32768 + 10}
	if !e.Uninitialized() {
		t.Fatal("expected len > 32768 to mark uninitialized")
	}
	if e.Length() != 10 {
		t.Fatalf("Length() = %d, want 10", e.Length())
	}
}

func TestWalkExtentTreeTwoLevel(t *testing.T) {
	blockSize := uint64(1024)
	leaf := buildExtentLeaf([]Extent{{Block: 0, Len: 3, StartLo: 500}}, 4)
	leafBlock := make([]byte, blockSize)
	copy(leafBlock, leaf)

	drive := &fakeDrive{data: make([]byte, blockSize*3)}
	copy(drive.data[blockSize*2:], leafBlock)

	root := make([]byte, 60)
	le := binary.LittleEndian
	le.PutUint16(root[0:], extentHeaderMagic)
	le.PutUint16(root[2:], 1)
	le.PutUint16(root[4:], 4)
	le.PutUint16(root[6:], 1) // depth 1: internal
	le.PutUint32(root[extentHeaderSize:], 0)
	le.PutUint32(root[extentHeaderSize+4:], 2) // leaf_lo -> block 2

	var footprints [][2]uint64
	got, err := WalkExtentTree(root, drive, blockSize, func(offset, size uint64) {
		footprints = append(footprints, [2]uint64{offset, size})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].PhysicalStart() != 500 {
		t.Fatalf("unexpected extents: %+v", got)
	}
	if len(footprints) != 2 {
		t.Fatalf("expected header+entries and tail-checksum footprints, got %d", len(footprints))
	}
	leafOffset := blockSize * 2
	wantEntries := uint64(extentHeaderSize + 1*extentRecordSize)
	if footprints[0][0] != leafOffset || footprints[0][1] != wantEntries {
		t.Fatalf("header+entries footprint = %+v, want offset %d size %d", footprints[0], leafOffset, wantEntries)
	}
	wantTailOffset := leafOffset + blockSize - extentTailSize
	if footprints[1][0] != wantTailOffset || footprints[1][1] != extentTailSize {
		t.Fatalf("tail footprint = %+v, want offset %d size %d", footprints[1], wantTailOffset, extentTailSize)
	}
}
