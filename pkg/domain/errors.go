package domain

import "errors"

// ErrOverflowRisk is returned when a configuration could overflow the selected value width.
var ErrOverflowRisk = errors.New("configuration risks overflow")

// ErrInvalidDimension is returned for lattice dimensions outside the supported range.
var ErrInvalidDimension = errors.New("invalid dimension")

// ErrInvalidConfig is returned when a configuration value is missing or out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrBlockNotFound is returned when a block expected to exist is missing from the store.
var ErrBlockNotFound = errors.New("block not found")

// ErrBlockTooSmall is returned when the block size limit cannot hold the minimum number of slices.
var ErrBlockTooSmall = errors.New("block size limit too small")

// ErrPropertiesNotFound is returned when a store holds no run properties.
var ErrPropertiesNotFound = errors.New("run properties not found")

// ErrCorruptBlock is returned when a stored block cannot be decoded or does not match its key.
var ErrCorruptBlock = errors.New("corrupt block")

// ErrIncompatibleRun is returned when stored properties do not match the requested model.
var ErrIncompatibleRun = errors.New("incompatible run")

// ErrValueRange is returned when a cell value does not fit the requested integer type.
var ErrValueRange = errors.New("value out of range")
