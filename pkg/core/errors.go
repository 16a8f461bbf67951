package core

import "errors"

// Domain errors raised by the versioning service. These represent caller
// errors and fail loudly; the route layer maps them to 404/400 responses.
var (
	// ErrVersionNotFound indicates a referenced version does not exist.
	ErrVersionNotFound = errors.New("version not found")

	// ErrBaseVersionExists indicates a base version already exists for
	// the dataset. At most one base version per dataset, ever.
	ErrBaseVersionExists = errors.New("base version already exists")

	// ErrDatasetMismatch indicates two versions belong to different
	// datasets and cannot be compared.
	ErrDatasetMismatch = errors.New("versions must belong to the same dataset")

	// ErrLineageNotFound indicates a referenced lineage record does not exist.
	ErrLineageNotFound = errors.New("lineage not found")
)
