package port

import (
	"io"

	"github.com/tarm/serial"
)

// openSerial opens the portable driver. The short read timeout gives Read
// the tick behavior Link relies on.
func openSerial(device string, baud int) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: readTick,
	})
}
