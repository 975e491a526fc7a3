package storage

import (
	"context"
	"fmt"
	"sync"

	"hydrakit/internal/model"
)

// MemoryUploader keeps blobs in process. kitctl falls back to it when no
// bucket is configured.
type MemoryUploader struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{blobs: make(map[string][]byte)}
}

func (m *MemoryUploader) Upload(_ context.Context, key, contentType string, body []byte) (model.Artifact, error) {
	m.mu.Lock()
	m.blobs[key] = append([]byte(nil), body...)
	m.mu.Unlock()
	return model.Artifact{
		Key:         key,
		URL:         fmt.Sprintf("mem://%s", key),
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

func (m *MemoryUploader) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	return b, ok
}
