// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package chainboot pushes kernel images to a target device running a
// chainloader over a serial line.
//
// The push protocol is driven by the target: after reset its
// chainloader signals readiness by sending three 0x03 bytes. The host
// replies with the image size as little-endian uint32, the target
// acknowledges with "OK", and the host streams the raw image. The
// chainloader then jumps to the loaded image.
package chainboot

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	readySignal = 0x03
	readyCount  = 3
)

// Push runs the chainboot push protocol on conn and streams image to
// the target. It blocks until the target signals readiness, so the
// caller is expected to bound it with ctx.
//
// Reads from conn that return (0, nil) are treated as polls and
// retried, which lets serial connections with a read timeout abort on
// context cancellation.
func Push(ctx context.Context, conn io.ReadWriter, image []byte) error {
	if len(image) > math.MaxUint32 {
		return ErrImageTooLarge
	}

	if err := awaitReady(ctx, conn); err != nil {
		return fmt.Errorf("await ready signal: %w", err)
	}

	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, uint32(len(image)))

	if _, err := conn.Write(size); err != nil {
		return fmt.Errorf("send image size: %w", err)
	}

	ack := make([]byte, 2)
	if err := readFull(ctx, conn, ack); err != nil {
		return fmt.Errorf("read acknowledgement: %w", err)
	}

	if string(ack) != "OK" {
		return fmt.Errorf("%w: got %q", ErrBadAck, ack)
	}

	if _, err := conn.Write(image); err != nil {
		return fmt.Errorf("stream image: %w", err)
	}

	return nil
}

// PushFile deploys the image at imagePath to the serial device. Any
// failure is returned as [DeployError].
func PushFile(ctx context.Context, device, imagePath string) error {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return &DeployError{Device: device, Err: err}
	}

	conn, err := OpenSerial(device)
	if err != nil {
		return &DeployError{Device: device, Err: err}
	}
	defer conn.Close()

	if err := Push(ctx, conn, image); err != nil {
		return &DeployError{Device: device, Err: err}
	}

	return nil
}

// awaitReady consumes conn until three consecutive ready bytes have
// been seen. The chainloader may print arbitrary boot output before it
// signals readiness, so any other byte just resets the count.
func awaitReady(ctx context.Context, r io.Reader) error {
	var (
		buf  [1]byte
		seen int
	)

	for seen < readyCount {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf[:])
		if err != nil {
			return err
		}

		if n == 0 {
			continue
		}

		if buf[0] == readySignal {
			seen++
		} else {
			seen = 0
		}
	}

	return nil
}

// readFull fills buf from r, retrying empty reads until ctx is done.
func readFull(ctx context.Context, r io.Reader, buf []byte) error {
	read := 0

	for read < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf[read:])
		if err != nil {
			return err
		}

		read += n
	}

	return nil
}
