package util

import "os"

// MkdirAllX creates the directory path via os.MkdirAll with the given
// permissions extended by u+x and g+x, keeping the result traversable
// whatever perm says.
func MkdirAllX(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm|0o110)
}
