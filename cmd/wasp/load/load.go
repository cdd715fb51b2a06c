// Package load reads a WebAssembly module from a file or byte slice,
// auto-detecting the binary and text encodings by their leading magic
// bytes, for the dump and validate CLI collaborators.
package load

import (
	"fmt"
	"os"

	"github.com/matovitch/wasp/binary"
	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
	"github.com/matovitch/wasp/text"
)

var binaryMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// Module decodes data as either the binary or the text format,
// selecting by the presence of the four-byte binary magic header.
func Module(data []byte, features feature.Set) (*ir.Module, *diag.Sink) {
	if len(data) >= 4 && string(data[:4]) == string(binaryMagic) {
		return binary.ReadModule(data, features)
	}
	return text.ParseModule(string(data), features)
}

// File reads path and decodes it via Module.
func File(path string, features feature.Set) (*ir.Module, *diag.Sink, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, sink := Module(data, features)
	return m, sink, nil
}
