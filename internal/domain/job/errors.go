package job

import "errors"

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrInvalidStatus = errors.New("job status is not valid")
	ErrJobFinished   = errors.New("job is already finished")
)
