// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// scratchPath returns a unique temporary name next to the final path, so
// the final rename stays on the same filesystem and is atomic.
func scratchPath(finalPath string) string {
	return finalPath + "." + uuid.NewString() + ".tmp"
}

// commitScratch moves a completed scratch file to its final name. A
// reader of finalPath never observes a partially written file.
func commitScratch(scratch, finalPath string) error {
	err := os.Rename(scratch, finalPath)
	if err != nil {
		_ = os.Remove(scratch)
		return fmt.Errorf("commit %s: %w", finalPath, err)
	}

	return nil
}

// discardScratch removes a scratch file, ignoring absence.
func discardScratch(scratch string) {
	_ = os.Remove(scratch)
}

// copyFile copies src to dst, truncating dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}

	return out.Close()
}
