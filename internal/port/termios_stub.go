//go:build !linux

package port

import (
	"fmt"
	"io"
)

func openTermios(path string, baud int) (io.ReadWriteCloser, error) {
	return nil, fmt.Errorf("termios driver is only available on linux")
}
