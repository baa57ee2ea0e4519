// Package objectstore holds uploaded group images outside the relational store.
package objectstore

import (
	"context"
	"fmt"

	"amor/internal/models"
)

// File is one uploaded binary as received from a client.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Object is a stored file addressed by its key.
type Object struct {
	Key string `json:"id"`
	URL string `json:"url"`
}

// Store uploads and deletes objects. Delete is best-effort and may leave
// storage lagging behind the database.
type Store interface {
	Upload(ctx context.Context, files []File) ([]Object, error)
	Delete(ctx context.Context, keys []string) error
}

// Constraints bound a single upload batch.
type Constraints struct {
	MinFiles     int
	MaxFiles     int
	MaxFileBytes int64
}

// DefaultConstraints matches the group image bounds.
func DefaultConstraints() Constraints {
	return Constraints{
		MinFiles:     models.MinGroupImages,
		MaxFiles:     models.MaxGroupImages,
		MaxFileBytes: 4 * 1024 * 1024,
	}
}

// Check validates batch size and per-file size.
func (c Constraints) Check(files []File) error {
	if len(files) < c.MinFiles || len(files) > c.MaxFiles {
		return models.NewValidationError(fmt.Sprintf("between %d and %d images are required, got %d", c.MinFiles, c.MaxFiles, len(files)))
	}
	for _, f := range files {
		if len(f.Content) == 0 {
			return models.NewValidationError(fmt.Sprintf("file %q is empty", f.Name))
		}
		if int64(len(f.Content)) > c.MaxFileBytes {
			return models.NewValidationError(fmt.Sprintf("file %q is too large (max %dMB)", f.Name, c.MaxFileBytes/(1024*1024)))
		}
	}
	return nil
}
