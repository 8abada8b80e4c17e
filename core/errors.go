package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid imaging options. It is fatal and is
	// reported before any pixel is processed.
	ErrConfiguration = errors.New("configuration error")

	// ErrDegenerateGeometry is returned when the image-plane basis cannot be
	// built, e.g. the scene-centre direction is parallel to the up vector.
	ErrDegenerateGeometry = fmt.Errorf("%w: degenerate image-plane geometry", ErrConfiguration)

	// ErrStageFailed wraps any failure inside a pipeline stage. No partial
	// output is produced once a stage fails.
	ErrStageFailed = errors.New("pipeline stage failed")
)
