// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package chainboot

import (
	"context"
	"path/filepath"

	"github.com/ebecht/metalrun/internal/bsp"
)

// BootstrapImage returns the path of the prebuilt JTAG bootstrap image
// for the variant. The bootstrap parks all cores in a wait loop so a
// JTAG debugger can attach and take over.
func BootstrapImage(sourceDir string, variant bsp.Variant) string {
	name := "jtag_boot_" + variant.String() + ".img"
	return filepath.Join(sourceDir, "jtag", name)
}

// PushJTAG pushes the variant's JTAG bootstrap image to the device.
// It is a one-shot operation: once the bootstrap runs, the target is
// controlled via the debugger, not the serial line.
func PushJTAG(ctx context.Context, device, sourceDir string, variant bsp.Variant) error {
	return PushFile(ctx, device, BootstrapImage(sourceDir, variant))
}
