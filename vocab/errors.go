package vocab

import "errors"

var (
	// ErrNotFound is returned when a token or descriptor is absent from the
	// bijection.
	ErrNotFound = errors.New("vocab: not found")

	// ErrDuplicate is returned when inserting an event whose descriptor is
	// already registered. Duplicate insertion is a programming error on the
	// learning path, and a corruption symptom on the load path.
	ErrDuplicate = errors.New("vocab: duplicate descriptor")

	// ErrCorruptState is returned when a persisted bijection cannot be
	// reconstructed: duplicate tokens or descriptors, or a merged-token
	// descriptor whose succession/decomposition does not parse.
	ErrCorruptState = errors.New("vocab: corrupt state")
)
