package skills

import "errors"

var (
	// ErrRetrievalUnavailable means the similarity service could not be reached.
	// The job must not be extracted against an empty candidate set.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrMalformedExtraction means the generated output did not match the
	// extraction schema.
	ErrMalformedExtraction = errors.New("malformed extraction")

	// ErrValidationEmpty marks a run in which every extracted skill was rejected.
	// It is an outcome, not a failure.
	ErrValidationEmpty = errors.New("no skills survived validation")

	// ErrPersistence means the replace transaction did not commit.
	ErrPersistence = errors.New("persistence failure")
)
