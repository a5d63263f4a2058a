// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package chainboot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Serial line parameters the target's chainloader and console use:
// 921600 baud, 8 data bits, no parity, 1 stop bit.
const serialBaud = unix.B921600

// pollInterval bounds single reads so a blocked [Serial.Read] returns
// periodically and callers can observe context cancellation.
const pollInterval = 100 * time.Millisecond

// Serial is a raw mode serial connection to a target device. Reads
// poll: a read with no data available returns (0, nil) after a short
// interval instead of blocking indefinitely.
type Serial struct {
	file *os.File
}

// OpenSerial opens the serial device and configures it for raw 8N1
// operation at the fixed baud rate.
func OpenSerial(device string) (*Serial, error) {
	file, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}

	if err := configure(int(file.Fd())); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("configure %s: %w", device, err)
	}

	return &Serial{file: file}, nil
}

func configure(fd int) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK |
		unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON |
		unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CBAUD
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | serialBaud
	termios.Ispeed = serialBaud
	termios.Ospeed = serialBaud
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, unix.TCSETS, termios)
}

// Read implements [io.Reader]. It returns (0, nil) if no data arrived
// within the poll interval.
func (s *Serial) Read(p []byte) (int, error) {
	deadline := time.Now().Add(pollInterval)
	if err := s.file.SetReadDeadline(deadline); err != nil {
		return 0, err
	}

	n, err := s.file.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}

	return n, err
}

// Write implements [io.Writer].
func (s *Serial) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Close closes the underlying device.
func (s *Serial) Close() error {
	return s.file.Close()
}
