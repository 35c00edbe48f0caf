// Package id generates URL-safe identifiers for battle runs.
//
// Identifiers are UUIDv4 bytes encoded as lowercase unpadded base32: 26
// characters drawn from a-z and 2-7.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Length is the size of every generated identifier.
const Length = 26

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new random identifier.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Valid reports whether value has the shape of an identifier from NewID.
func Valid(value string) bool {
	if len(value) != Length || strings.ToLower(value) != value {
		return false
	}
	raw, err := encoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		return false
	}
	_, err = uuid.FromBytes(raw)
	return err == nil
}
