package ext4

import "testing"

func TestCompatFeaturesUnknown(t *testing.T) {
	f := CompatFeatures(0x80000000)
	if !f.HasUnknown() {
		t.Fatal("expected unknown bit to be flagged")
	}
	if got := f.GetUnknown(); got != 0x80000000 {
		t.Fatalf("GetUnknown() = %#x, want %#x", got, 0x80000000)
	}
}

func TestCompatFeaturesKnownBitsNotUnknown(t *testing.T) {
	f := compatHasJournal | compatExcludeInode | compatSparseSuper2
	if f.HasUnknown() {
		t.Fatalf("known bits flagged unknown: %#x", f.GetUnknown())
	}
	if !f.HasHasJournal() || !f.HasExcludeInode() || !f.HasSparseSuper2() {
		t.Fatal("expected all three queried bits to report set")
	}
}

func TestIncompatFeaturesQueries(t *testing.T) {
	f := incompatExtents | incompat64Bit | incompatRecover
	if !f.HasExtents() || !f.Has64Bit() || !f.HasRecover() {
		t.Fatal("expected extents, 64bit, and recover to report set")
	}
	if f.HasEncrypt() || f.HasMetaBG() {
		t.Fatal("unset bits reported set")
	}
}

func TestBgFlagsInodeZeroed(t *testing.T) {
	f := BgFlags(0x4)
	if !f.HasInodeZeroed() {
		t.Fatal("expected 0x4 to decode as INODE_ZEROED")
	}
	if f.HasInodeUninit() || f.HasBlockUninit() {
		t.Fatal("unrelated bits reported set")
	}
}

func TestIModeFileTypes(t *testing.T) {
	cases := []struct {
		mode IMode
		want string
	}{
		{modeFmtFile, "reg"},
		{modeFmtDir, "dir"},
		{modeFmtSymlnk, "lnk"},
		{modeFmtSocket, "sock"},
		{modeFmtBlock, "blk"},
		{modeFmtChar, "chr"},
		{modeFmtFIFO, "fifo"},
	}
	for _, c := range cases {
		m := c.mode | 0644
		switch c.want {
		case "reg":
			if !m.HasIFReg() {
				t.Fatalf("%v: expected HasIFReg", c.mode)
			}
		case "dir":
			if !m.HasIFDir() {
				t.Fatalf("%v: expected HasIFDir", c.mode)
			}
		case "lnk":
			if !m.HasIFLnk() {
				t.Fatalf("%v: expected HasIFLnk", c.mode)
			}
		case "sock":
			if !m.HasIFSock() {
				t.Fatalf("%v: expected HasIFSock", c.mode)
			}
		case "blk":
			if !m.HasIFBlk() {
				t.Fatalf("%v: expected HasIFBlk", c.mode)
			}
		case "chr":
			if !m.HasIFChr() {
				t.Fatalf("%v: expected HasIFChr", c.mode)
			}
		case "fifo":
			if !m.HasIFIFO() {
				t.Fatalf("%v: expected HasIFIFO", c.mode)
			}
		}
	}
}

func TestDecodeEncryptAlgo(t *testing.T) {
	if _, ok := decodeEncryptAlgo(5); ok {
		t.Fatal("expected unrecognized algo value to fail")
	}
	algo, ok := decodeEncryptAlgo(1)
	if !ok || algo != EncryptAlgo256XTS {
		t.Fatalf("decodeEncryptAlgo(1) = %v, %v", algo, ok)
	}
}
