//go:build !unix

package cachefile

// Cross-process locking is only implemented on unix.
type fileLock struct{}

func acquireLock(string) (*fileLock, error) {
	return &fileLock{}, nil
}

func (*fileLock) release() error {
	return nil
}
