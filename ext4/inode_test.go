package ext4

import (
	"encoding/binary"
	"testing"
)

func buildRegularInode(sizeLo uint32, blocksLo uint32, flags IFlags) []byte {
	buf := make([]byte, InodeRecordSize)
	le := binary.LittleEndian
	le.PutUint16(buf[0x00:], uint16(modeFmtFile|0644))
	le.PutUint32(buf[0x04:], sizeLo)
	le.PutUint16(buf[0x1A:], 1) // links_count
	le.PutUint32(buf[0x1C:], blocksLo)
	le.PutUint32(buf[0x20:], uint32(flags))
	return buf
}

func TestDecodeInodeRejectsUnknownFlags(t *testing.T) {
	buf := buildRegularInode(4096, 8, IFlags(1)<<30)
	if _, err := DecodeInode(buf); err == nil {
		t.Fatal("expected unknown flag bit to be rejected")
	}
}

func TestDecodeInodeRejectsEncrypted(t *testing.T) {
	buf := buildRegularInode(4096, 8, iFlagEncrypt)
	if _, err := DecodeInode(buf); err == nil {
		t.Fatal("expected encrypted inode to be rejected")
	}
}

func TestDecodeInodeHappyPath(t *testing.T) {
	buf := buildRegularInode(4096, 8, iFlagExtents)
	in, err := DecodeInode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in.Mode.HasIFReg() {
		t.Fatal("expected regular file mode")
	}
	if in.Size() != 4096 {
		t.Fatalf("Size() = %d, want 4096", in.Size())
	}
	if !in.Flags.HasExtents() {
		t.Fatal("expected extents flag to decode")
	}
}

func TestInodeBlockCount(t *testing.T) {
	fs := buildMinimalFs(t)
	in, err := DecodeInode(buildRegularInode(4096, 8, iFlagExtents))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count, err := in.BlockCount(fs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 8 sectors of 512 bytes = 4096 bytes = 4 blocks of 1024 bytes.
	if count != 4 {
		t.Fatalf("BlockCount() = %d, want 4", count)
	}
}

func TestClassifyInodeJournal(t *testing.T) {
	in, _ := DecodeInode(buildRegularInode(0, 0, 0))
	in.Mode = 0
	typ, err := ClassifyInode(in, 0, 7, 32, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != InodeTypeJournal {
		t.Fatalf("ClassifyInode = %v, want InodeTypeJournal", typ)
	}
}

func TestClassifyInodeReservedEmpty(t *testing.T) {
	in, _ := DecodeInode(buildRegularInode(0, 0, 0))
	in.Mode = 0
	typ, err := ClassifyInode(in, 0, 3, 32, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != InodeTypeReservedEmpty {
		t.Fatalf("ClassifyInode = %v, want InodeTypeReservedEmpty", typ)
	}
}

func TestClassifyInodeInvalidMode(t *testing.T) {
	in, _ := DecodeInode(buildRegularInode(0, 0, 0))
	in.Mode = 0
	if _, err := ClassifyInode(in, 1, 20, 32, 11); err == nil {
		t.Fatal("expected zero mode on non-reserved slot to be rejected")
	}
}
