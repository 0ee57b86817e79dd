// Package objectstore defines the interface the stream controller, prefetcher
// and reader use to reach remote byte-addressable storage, plus the
// bucket/key/version identity type shared across implementations.
package objectstore

import (
	"context"
	"fmt"
	"strings"
)

// ObjectRef identifies a single remote object. Version is optional; stores
// that are not version-aware ignore it.
type ObjectRef struct {
	Bucket  string
	Key     string
	Version string
}

func (r ObjectRef) String() string {
	if r.Version != "" {
		return fmt.Sprintf("%s/%s@%s", r.Bucket, r.Key, r.Version)
	}
	return fmt.Sprintf("%s/%s", r.Bucket, r.Key)
}

// Store issues size queries and ranged reads against remote objects. All
// methods must be safe for concurrent use.
type Store interface {
	// Size returns the total byte length of the object.
	Size(ctx context.Context, ref ObjectRef) (uint64, error)

	// GetRange returns the bytes in the half-open interval [start, end) of
	// the object. A short read at end-of-object (end beyond the object's
	// size) is authoritative, not an error: implementations return
	// whatever bytes exist from start to the object's actual end.
	GetRange(ctx context.Context, ref ObjectRef, start, end int64) ([]byte, error)
}

// SplitPath parses a "bucket/key" or "bucket/key@version" path into an
// ObjectRef. The key may itself contain "/"; only the first segment is
// taken as the bucket.
func SplitPath(path string) (ObjectRef, error) {
	if path == "" {
		return ObjectRef{}, fmt.Errorf("objectstore: empty path")
	}

	bucketAndRest := strings.SplitN(path, "/", 2)
	if len(bucketAndRest) != 2 || bucketAndRest[0] == "" || bucketAndRest[1] == "" {
		return ObjectRef{}, fmt.Errorf("objectstore: path %q is not of the form bucket/key", path)
	}

	bucket, rest := bucketAndRest[0], bucketAndRest[1]

	key, version, _ := strings.Cut(rest, "@")
	if key == "" {
		return ObjectRef{}, fmt.Errorf("objectstore: path %q has an empty key", path)
	}

	return ObjectRef{Bucket: bucket, Key: key, Version: version}, nil
}
