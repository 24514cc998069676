package ext4

import "fmt"

// DecodeError reports malformed on-disk bytes: a bad magic value, an
// unrecognized enum value, or unknown flag bits set in a packed bitfield.
type DecodeError struct {
	Entity string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error in %s: %s", e.Entity, e.Reason)
}

func decodeErrorf(entity, format string, args ...interface{}) error {
	return &DecodeError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedFeatureError reports a recognized but unimplemented feature,
// such as gdt_csum, meta_bg, encryption, or verity.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported feature: %s", e.Feature)
}

func unsupportedFeaturef(format string, args ...interface{}) error {
	return &UnsupportedFeatureError{Feature: fmt.Sprintf(format, args...)}
}

// FilesystemStateError reports that the filesystem itself is in a state
// this tool refuses to operate on: dirty, needing recovery, in fast-commit
// replay, or mounted read-only.
type FilesystemStateError struct {
	Reason string
}

func (e *FilesystemStateError) Error() string {
	return fmt.Sprintf("filesystem state error: %s", e.Reason)
}

func filesystemStatef(format string, args ...interface{}) error {
	return &FilesystemStateError{Reason: fmt.Sprintf(format, args...)}
}

// InternalInvariantError reports a safety check firing inside the core
// (e.g. the Usage Map's adjacency invariant).
type InternalInvariantError struct {
	Reason string
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated: %s", e.Reason)
}

// IoError wraps an underlying read/seek failure against the drive backend
// with the offset being accessed when it occurred.
type IoError struct {
	Offset int64
	Op     string
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error during %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

func ioErrorf(op string, offset int64, err error) error {
	return &IoError{Offset: offset, Op: op, Err: err}
}
