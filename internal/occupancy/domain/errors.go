package occupancy

import "errors"

// ErrPercentOutOfRange is returned when a reading is outside [0,100].
var ErrPercentOutOfRange = errors.New("occupancy: percent out of range")

// ErrZeroTimestamp is returned when a sample carries no timestamp.
var ErrZeroTimestamp = errors.New("occupancy: zero timestamp")

// ErrNilLocation is returned when a time.Location is required but missing.
var ErrNilLocation = errors.New("occupancy: nil location")
