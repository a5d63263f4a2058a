// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ebecht/metalrun/internal/bsp"
)

// Signature is a hex encoded content signature. Freshness decisions are
// made on signatures only, never on file modification times.
type Signature string

// FileSignature computes the [Signature] of a file's content.
func FileSignature(path string) (Signature, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("signature: %w", err)
	}
	defer f.Close()

	h := sha256.New()

	_, err = io.Copy(h, f)
	if err != nil {
		return "", fmt.Errorf("signature %s: %w", path, err)
	}

	return Signature(hex.EncodeToString(h.Sum(nil))), nil
}

// ConfigSignature computes the [Signature] of a build configuration.
//
// All fields are length-prefixed so distinct configs can never collide
// on concatenation boundaries.
func ConfigSignature(cfg bsp.Config) Signature {
	h := sha256.New()

	writeField := func(data string) {
		var length [8]byte

		binary.BigEndian.PutUint64(length[:], uint64(len(data)))
		h.Write(length[:])
		h.Write([]byte(data))
	}

	writeField(string(cfg.Variant))
	writeField(strconv.FormatBool(cfg.DebugInfo))

	// Features are normalized (sorted, unique) by bsp.NewConfig.
	for _, feature := range cfg.Features {
		writeField(feature)
	}

	return Signature(hex.EncodeToString(h.Sum(nil)))
}
