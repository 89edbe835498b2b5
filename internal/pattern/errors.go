package pattern

import "errors"

var (
	// ErrEmptyPattern is returned when the pattern source is empty.
	ErrEmptyPattern = errors.New("pattern source is empty")

	// ErrUnknownPreset is returned when a preset name is not registered.
	ErrUnknownPreset = errors.New("unknown pattern preset")
)
