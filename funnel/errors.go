package funnel

import "errors"

var (
	ErrInvalidEvent       = errors.New("invalid funnel event")
	ErrInvalidStageConfig = errors.New("invalid funnel stage configuration")
)
