package testutil

import (
	"context"
	"fmt"
	"sync"

	"amor/internal/objectstore"
)

// ObjectStoreStub is an in-memory objectstore.Store. Set UploadFn or DeleteFn to inject failures.
type ObjectStoreStub struct {
	UploadFn func(ctx context.Context, files []objectstore.File) ([]objectstore.Object, error)
	DeleteFn func(ctx context.Context, keys []string) error

	mu      sync.Mutex
	next    int
	objects map[string][]byte
	deleted []string
}

// NewObjectStoreStub returns an empty stub.
func NewObjectStoreStub() *ObjectStoreStub {
	return &ObjectStoreStub{objects: map[string][]byte{}}
}

func (s *ObjectStoreStub) Upload(ctx context.Context, files []objectstore.File) ([]objectstore.Object, error) {
	if s.UploadFn != nil {
		return s.UploadFn(ctx, files)
	}
	if err := objectstore.DefaultConstraints().Check(files); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]objectstore.Object, 0, len(files))
	for _, f := range files {
		s.next++
		key := fmt.Sprintf("obj-%d.jpg", s.next)
		s.objects[key] = f.Content
		out = append(out, objectstore.Object{Key: key, URL: "/media/" + key})
	}
	return out, nil
}

func (s *ObjectStoreStub) Delete(ctx context.Context, keys []string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, keys)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.objects, k)
		s.deleted = append(s.deleted, k)
	}
	return nil
}

// Has reports whether key is currently stored.
func (s *ObjectStoreStub) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Count returns the number of stored objects.
func (s *ObjectStoreStub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Deleted returns every key passed to a successful Delete.
func (s *ObjectStoreStub) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}
