// Package fill overwrites the Free segments of a usagemap.Map on a
// drive with bytes from a chosen generator, leaving Used segments
// untouched. Ported from the buffer-refill loop in the original
// scanner's space filler.
package fill

import (
	"fmt"
	"io"

	"github.com/blkscrub/blkscrub/usagemap"
)

const bufferSize = 4096

// ByteGenerator produces an endless stream of fill bytes.
type ByteGenerator interface {
	// Fill populates p entirely.
	Fill(p []byte)
}

// Mode names the available fill strategies, matching the command line's
// -f/--fill-mode flag.
type Mode int

const (
	ModeZero Mode = iota
	ModeChaCha20
	ModeHC128
)

func (m Mode) String() string {
	switch m {
	case ModeZero:
		return "zero"
	case ModeChaCha20:
		return "chacha20"
	case ModeHC128:
		return "hc128"
	default:
		return "unknown"
	}
}

// Set implements pflag.Value, so -f/--fill-mode can be bound directly to
// a Mode variable with validation happening at flag-parse time.
func (m *Mode) Set(s string) error {
	switch s {
	case "zero":
		*m = ModeZero
	case "chacha20":
		*m = ModeChaCha20
	case "hc128":
		*m = ModeHC128
	default:
		return fmt.Errorf("must be one of zero, chacha20, hc128")
	}
	return nil
}

// Type implements pflag.Value.
func (m Mode) Type() string { return "mode" }

// WritableDrive is the subset of backend.WritableFile the filler needs.
type WritableDrive interface {
	io.WriterAt
}

// Run overwrites every Free segment of m on drive with bytes from gen.
// Used segments are never touched. A single bufferSize-byte buffer is
// refilled from gen as needed and reused across segments, matching the
// original implementation's allocation-free inner loop.
func Run(gen ByteGenerator, m *usagemap.Map, drive WritableDrive) error {
	buf := make([]byte, bufferSize)
	gen.Fill(buf)
	pos := 0 // index into buf of the next unused byte

	for _, seg := range m.Segments() {
		if seg.Status != usagemap.Free {
			continue
		}

		remaining := seg.End - seg.Start
		offset := int64(seg.Start)

		for remaining > 0 {
			if pos == len(buf) {
				gen.Fill(buf)
				pos = 0
			}

			chunk := buf[pos:]
			if uint64(len(chunk)) > remaining {
				chunk = chunk[:remaining]
			}

			n, err := drive.WriteAt(chunk, offset)
			if err != nil {
				return err
			}

			offset += int64(n)
			remaining -= uint64(n)
			pos += n
		}
	}

	return nil
}
