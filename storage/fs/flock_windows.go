//go:build windows

package fs

// flockExclusive is a no-op on Windows; writers are not serialized across processes.
func flockExclusive(fd int) error {
	return nil
}

// flockUnlock is a no-op on Windows.
func flockUnlock(fd int) error {
	return nil
}

func isLockNotSupportedError(err error) bool {
	return false
}
