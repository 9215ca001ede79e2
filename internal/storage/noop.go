package storage

import (
	"context"
	"errors"
)

// ErrNotConfigured indica ausência de backend de armazenamento.
var ErrNotConfigured = errors.New("storage: uploader não configurado")

// NoopUploader é usado quando nenhum backend foi configurado; anexos de
// chamado ficam indisponíveis, o resto da API segue funcionando.
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, ErrNotConfigured
}
