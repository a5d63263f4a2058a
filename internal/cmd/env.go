// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// EnvArgs returns metalrun arguments from the environment.
func EnvArgs() []string {
	return strings.Fields(os.Getenv("METALRUN_ARGS"))
}

// LocalConfigArgs returns metalrun arguments from a local config file.
//
// The file's format is one argument per line. Environment variables may
// be used and are expanded with [os.ExpandEnv].
func LocalConfigArgs(fsys fs.FS, file string) ([]string, error) {
	conf, err := fs.ReadFile(fsys, file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read file: %w", err)
	}

	args := []string{}

	expandedConf := os.ExpandEnv(string(conf))
	for _, line := range strings.Split(expandedConf, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			args = append(args, line)
		}
	}

	return args, nil
}

// MergedArgs merges arguments from all sources in order of precedence:
// environment first, then the local config file, then the command line,
// so command line flags override the other sources.
func MergedArgs(
	cliArgs []string,
	fsys fs.FS,
	localConfig string,
) ([]string, error) {
	localArgs, err := LocalConfigArgs(fsys, localConfig)
	if err != nil {
		return nil, fmt.Errorf("local config args: %w", err)
	}

	args := EnvArgs()
	args = append(args, localArgs...)
	args = append(args, cliArgs...)

	return args, nil
}
