//go:build !(linux || darwin || freebsd)

package template

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("shared template cache is not supported on this platform")

func mapFile(*os.File, int) ([]byte, error) {
	return nil, errUnsupported
}

func unmapFile([]byte) error {
	return errUnsupported
}

func lockFile(int, bool) error {
	return errUnsupported
}

func unlockFile(int) error {
	return errUnsupported
}
