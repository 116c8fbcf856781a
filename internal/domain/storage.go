package domain

import "context"

// FileStorage holds uploaded files such as CVs.
type FileStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// StoredFile references an uploaded file from a StudentProfile.
type StoredFile struct {
	StorageID string `json:"storageId"`
	FileName  string `json:"fileName"`
}
