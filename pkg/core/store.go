package core

import "time"

// Store defines the document-store interface for dataset versions and
// transformation lineage. Getters return (nil, nil) when the document does
// not exist; absence is not an error at this layer.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Version operations
	InsertVersion(v *DatasetVersion) error
	SaveVersion(v *DatasetVersion) error
	GetVersionByID(id string) (*DatasetVersion, error)
	FindBaseVersion(datasetID string) (*DatasetVersion, error)
	FindVersionByContentHash(datasetID, contentHash string) (*DatasetVersion, error)
	ListVersions(datasetID, createdBy string, limit, skip int) ([]*DatasetVersion, error)
	MaxVersionNumber(datasetID string) (int, error)
	TouchVersionAccess(id string, at time.Time) error
	DeleteVersion(id string) error

	// Lineage operations
	InsertLineage(l *TransformationLineage) error
	GetLineageByID(id string) (*TransformationLineage, error)
	GetLineageByChild(childVersionID string) ([]*TransformationLineage, error)
	DeleteLineageByChild(childVersionID string) error
}

// BlobStore defines the blob-store interface for raw version content.
// Paths follow the datasets/{user}/{dataset}/v{n}/{filename} convention.
type BlobStore interface {
	// Put stores data at path and returns the resolved location.
	Put(path string, data []byte) (string, error)
	Get(path string) ([]byte, error)
	Delete(path string) error
}
