// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd provides the CLI command entry point for metalrun. It
// handles flag parsing, subcommand dispatch, error handling and exit
// code mapping.
package cmd
