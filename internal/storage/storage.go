package storage

import "context"

// UploadInput descreve um blob a persistir (anexos de chamados).
type UploadInput struct {
	Key         string
	Body        []byte
	ContentType string
}

// UploadResult aponta o artefato persistido.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader abstrai o backend de armazenamento de blobs.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}
