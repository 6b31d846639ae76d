package storage

import (
	"context"
	"errors"
	"time"
)

// ErrStorageUnavailable wraps backend failures that should surface as a 503
// rather than a generic server error. The per-file ingestion loop records
// these as file-level errors and keeps going.
var ErrStorageUnavailable = errors.New("document storage unavailable")

// IDocumentStorage persists accepted document bytes under an opaque key.
// Keys are namespaced per user by the caller; implementations never invent
// their own key structure.
type IDocumentStorage interface {
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
