//go:build !unix

package fieldbus

// FileLock is a no-op on platforms without flock; the in-process mutex in the
// callers still serialises writers within one process.
type FileLock struct{}

func Lock(path string) (*FileLock, error) { return &FileLock{}, nil }

func (l *FileLock) Unlock() error { return nil }
