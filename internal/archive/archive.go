// Package archive defines the interface for storing raw fetched pages. The
// abstraction keeps the lookup client independent of a specific blob
// backend.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Provider stores a raw page body under an object name.
type Provider interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider discards all pages. Used when archiving is not configured.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}

// ObjectName derives a stable, path-safe object name for a source
// reference, partitioned by fetch date.
func ObjectName(sourceRef string) string {
	sum := sha256.Sum256([]byte(sourceRef))
	return time.Now().UTC().Format(time.DateOnly) + "/" + hex.EncodeToString(sum[:]) + ".html"
}
