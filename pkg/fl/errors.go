package fl

import "errors"

var (
	ErrNoUpdates         = errors.New("no updates provided for aggregation")
	ErrNoAggregation     = errors.New("framework does not aggregate")
	ErrUnknownFramework  = errors.New("unknown framework")
	ErrMissingMask       = errors.New("update carries no dropout mask")
	ErrUnknownAllocation = errors.New("unknown allocation scheme")
	ErrAllocation        = errors.New("invalid allocation")
	ErrInvalidName       = errors.New("invalid name")
)
