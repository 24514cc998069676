package file

import (
	"bytes"
	"io"
	"io/fs"
	"testing"

	"github.com/blkscrub/blkscrub/backend"
)

// memFile is a minimal fs.File+io.ReaderAt+io.Seeker stand-in over an
// in-memory byte slice, used to exercise rawBackend without touching
// the real filesystem.
type memFile struct {
	*bytes.Reader
}

func (memFile) Stat() (fs.FileInfo, error) { return nil, nil }
func (memFile) Close() error               { return nil }

func newMemFile(data []byte) memFile {
	return memFile{bytes.NewReader(data)}
}

func TestNewReadOnlyRejectsWritable(t *testing.T) {
	storage := New(newMemFile([]byte("hello")), true)
	if _, err := storage.Writable(); err != backend.ErrIncorrectOpenMode {
		t.Fatalf("Writable() error = %v, want ErrIncorrectOpenMode", err)
	}
}

func TestNewReadAt(t *testing.T) {
	storage := New(newMemFile([]byte("hello world")), true)
	buf := make([]byte, 5)
	if _, err := storage.ReadAt(buf, 6); err != nil {
		t.Fatalf("ReadAt: unexpected error: %v", err)
	}
	if string(buf) != "world" {
		t.Fatalf("ReadAt = %q, want %q", buf, "world")
	}
}

func TestNewSysNotSuitable(t *testing.T) {
	storage := New(newMemFile([]byte("x")), true)
	if _, err := storage.Sys(); err != backend.ErrNotSuitable {
		t.Fatalf("Sys() error = %v, want ErrNotSuitable", err)
	}
}

func TestOpenFromPathRejectsMissingName(t *testing.T) {
	if _, err := OpenFromPath("", true); err == nil {
		t.Fatal("expected empty path to be rejected")
	}
}

func TestOpenFromPathRejectsNonexistentFile(t *testing.T) {
	if _, err := OpenFromPath("/nonexistent/does-not-exist.img", true); err == nil {
		t.Fatal("expected nonexistent path to be rejected")
	}
}

var _ io.ReaderAt = memFile{}
