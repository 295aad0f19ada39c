// Package storage keeps fetched video artifacts on local disk or in an
// S3 compatible bucket
package storage

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// ErrTooLarge is wrapped by Put when a body exceeds the configured limit
var ErrTooLarge = errors.New("media object exceeds size limit")

// cleanKey normalizes an object key and rejects keys escaping the root
func cleanKey(key string) (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(key), "/")
	k := strings.TrimPrefix(path.Clean("/"+raw), "/")
	if k == "" || k != raw {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid media key %q", key))
	}
	return k, nil
}

// limitedReader fails once more than max bytes have been read. A max of
// zero or less disables the limit.
type limitedReader struct {
	r   io.Reader
	max int64
	n   int64
}

func limit(r io.Reader, max int64) *limitedReader {
	return &limitedReader{r: r, max: max}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.max > 0 && l.n > l.max {
		return n, fmt.Errorf("%w (%d bytes)", ErrTooLarge, l.max)
	}
	return n, err
}

// Count returns the number of bytes read so far
func (l *limitedReader) Count() int64 {
	return l.n
}
