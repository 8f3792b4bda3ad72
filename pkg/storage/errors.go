package storage

import "errors"

var (
	ErrDBConnection   = errors.New("database connection error")
	ErrDBQuery        = errors.New("database query error")
	ErrUpdate         = errors.New("update error")
	ErrDelete         = errors.New("delete error")
	ErrUnsupported    = errors.New("unsupported storage type")
	ErrCheckpointData = errors.New("corrupt checkpoint")
)
