// Package cryptox hashes and verifies account passwords with argon2id. Digests
// use the PHC string format so the parameters travel with each digest.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"
	saltLength  = 16
	keyLength   = 32
)

var ErrMalformedDigest = errors.New("malformed password digest")

// Params are the argon2id cost parameters. Memory is in KiB.
type Params struct {
	Memory  uint32 `json:"memory" env:"MEMORY"`
	Time    uint32 `json:"time" env:"TIME"`
	Threads uint8  `json:"threads" env:"THREADS"`
}

// DefaultParams matches the RFC 9106 second recommended option.
func DefaultParams() Params {
	return Params{Memory: 64 * 1024, Time: 3, Threads: 4}
}

func (p Params) validate() error {
	if p.Memory < 8*uint32(p.Threads) || p.Memory == 0 {
		return fmt.Errorf("argon2 memory %d KiB too small", p.Memory)
	}
	if p.Time == 0 {
		return errors.New("argon2 time must be >= 1")
	}
	if p.Threads == 0 {
		return errors.New("argon2 threads must be >= 1")
	}
	return nil
}

type Hasher struct {
	params Params
	rand   io.Reader
}

func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p, rand: rand.Reader}, nil
}

// Hash returns the PHC encoded digest of password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, keyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest. The parameters encoded in
// the digest are used, not the hasher's own.
func (h *Hasher) Verify(password, digest string) (bool, error) {
	p, salt, key, err := decode(digest)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1, nil
}

func decode(digest string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return p, nil, nil, ErrMalformedDigest
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedDigest, parts[2])
	}

	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, nil, ErrMalformedDigest
		}
		var err error
		var n uint64
		switch k {
		case "m":
			n, err = strconv.ParseUint(v, 10, 32)
			p.Memory = uint32(n)
		case "t":
			n, err = strconv.ParseUint(v, 10, 32)
			p.Time = uint32(n)
		case "p":
			n, err = strconv.ParseUint(v, 10, 8)
			p.Threads = uint8(n)
		default:
			err = fmt.Errorf("unknown parameter %q", k)
		}
		if err != nil {
			return p, nil, nil, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
		}
	}
	if err := p.validate(); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedDigest
	}

	return p, salt, key, nil
}
