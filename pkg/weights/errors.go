package weights

import "errors"

var (
	ErrShapeMismatch = errors.New("weight tree shape mismatch")
	ErrLength        = errors.New("vector length does not match layout")
	ErrEmptyTree     = errors.New("no weight trees provided")
)
