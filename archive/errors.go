package archive

import "errors"

var (
	// ErrOutOfRange is returned for an index outside the written records
	// (reads) or outside the capacity (writes).
	ErrOutOfRange = errors.New("archive: index out of range")

	// ErrCorrupted is returned when a record fails its CRC check.
	ErrCorrupted = errors.New("archive: corrupted record")

	// ErrPayloadSize is returned when a payload is not exactly RecordSize bytes.
	ErrPayloadSize = errors.New("archive: payload size mismatch")

	// ErrFull is returned by Append once every slot is written.
	ErrFull = errors.New("archive: full")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("archive: closed")

	// ErrInvalidOptions is returned by Open for an unusable layout.
	ErrInvalidOptions = errors.New("archive: invalid options")
)
