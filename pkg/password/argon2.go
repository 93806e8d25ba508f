// Package password hashes and verifies account passwords with argon2id.
//
// Hashes are stored as PHC strings:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Errors.
var (
	ErrTooShort      = errors.New("password: too short")
	ErrMismatch      = errors.New("password: mismatch")
	ErrInvalidHash   = errors.New("password: invalid hash format")
	ErrIncompatible  = errors.New("password: incompatible argon2 version")
	ErrInvalidParams = errors.New("password: invalid parameters")
)

// Params controls the cost of hashing.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// DefaultParams follows the RFC 9106 second recommended option.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Time:        1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
	MinLength:   8,
}

// Hasher hashes and verifies passwords.
type Hasher struct {
	p Params
}

// New creates a Hasher. Zero-valued params fall back to DefaultParams.
func New(p Params) (*Hasher, error) {
	if p == (Params{}) {
		p = DefaultParams
	}
	if p.Memory < 8*1024 || p.Time < 1 || p.Parallelism < 1 || p.SaltLength < 16 || p.KeyLength < 16 {
		return nil, ErrInvalidParams
	}
	return &Hasher{p: p}, nil
}

// Hash returns the PHC-encoded argon2id hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < h.p.MinLength {
		return "", ErrTooShort
	}

	salt := make([]byte, h.p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.p.Time, h.p.Memory, h.p.Parallelism, h.p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.p.Memory, h.p.Time, h.p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares the password with an encoded hash in constant time.
// It returns ErrMismatch when the password is wrong.
func (h *Hasher) Verify(password, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return ErrInvalidHash
	}
	if version != argon2.Version {
		return ErrIncompatible
	}

	var (
		memory, time uint32
		parallelism  uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism); err != nil {
		return ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return ErrInvalidHash
	}

	got := argon2.IDKey([]byte(password), salt, time, memory, parallelism, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrMismatch
	}
	return nil
}
