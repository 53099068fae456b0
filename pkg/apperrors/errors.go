package apperrors

import "errors"

var (
	ErrMissingCredentials = errors.New("missing or placeholder credentials")
	ErrSampleTooLarge     = errors.New("sample size exceeds available movies")
	ErrMissingColumn      = errors.New("required column not found in input file")
)
