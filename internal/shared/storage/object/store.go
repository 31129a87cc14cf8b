package object

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/google/uuid"

	"verisight-backend/internal/shared/util"
)

var (
	// ErrNotFound is returned by Open when no object exists under the key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Object describes a stored blob.
type Object struct {
	Key      string
	Size     int64
	MIMEType string
}

// Store defines the contract for saving and retrieving uploaded media.
type Store interface {
	Save(ctx context.Context, ownerID, fileName, mimeType string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds a storage key namespaced by a hash of the owner id.
func NewKey(ownerID, fileName string) string {
	return path.Join(util.OwnerPrefix(ownerID), uuid.NewString()+"_"+util.SanitizeFileName(fileName))
}
