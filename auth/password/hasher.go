// Package password provides password hashing and the verification strategy
// used at login.
//
// Implementations:
//   - BcryptHasher: bcrypt hashing (default)
//   - Argon2Hasher: argon2id hashing
//
// Login code depends on Verifier only, so a test can swap in AcceptAny for
// the duration of one test without touching the hashers.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("password: invalid password")

// Verifier checks a plaintext password against a stored hash.
// Verify returns nil on match.
type Verifier interface {
	Verify(password, hash string) error
}

// VerifierFunc adapts an ordinary function to the Verifier interface.
type VerifierFunc func(password, hash string) error

// Verify implements Verifier.
func (f VerifierFunc) Verify(password, hash string) error { return f(password, hash) }

// AcceptAny accepts every password. Test helpers install it to log fixture
// users in without a real hash; it is not selectable from configuration.
var AcceptAny Verifier = VerifierFunc(func(string, string) error { return nil })

// Hasher hashes new passwords and verifies existing ones.
type Hasher interface {
	Verifier
	Hash(password string) (string, error)
}

const (
	defaultBcryptCost = 12
	defaultMinLength  = 8
	// bcrypt ignores input past 72 bytes, so longer passwords are refused.
	bcryptMaxLength = 72
)

var defaultArgon2 = Argon2Hasher{
	time:      1,
	memory:    64 * 1024,
	threads:   4,
	keyLen:    32,
	saltLen:   16,
	minLength: defaultMinLength,
}

func checkLength(password string, min, max int) error {
	if len(password) < min {
		return fmt.Errorf("password: minimum length is %d characters", min)
	}
	if max > 0 && len(password) > max {
		return fmt.Errorf("password: maximum length is %d characters", max)
	}
	return nil
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost      int
	minLength int
}

// BcryptOption configures the bcrypt hasher.
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt cost parameter (default: 12, range: 4-31).
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithMinLength sets the minimum accepted password length (default: 8).
func WithMinLength(n int) BcryptOption {
	return func(h *BcryptHasher) {
		if n > 0 {
			h.minLength = n
		}
	}
}

// NewBcryptHasher creates a bcrypt-based password hasher.
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: defaultBcryptCost, minLength: defaultMinLength}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if err := checkLength(password, h.minLength, bcryptMaxLength); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrMismatch
	}
	return nil
}

// Argon2Hasher implements Hasher using argon2id.
type Argon2Hasher struct {
	time      uint32
	memory    uint32
	threads   uint8
	keyLen    uint32
	saltLen   int
	minLength int
}

// Argon2Option configures the argon2id hasher.
type Argon2Option func(*Argon2Hasher)

// WithArgon2Time sets the number of iterations (default: 1).
func WithArgon2Time(t uint32) Argon2Option {
	return func(h *Argon2Hasher) { h.time = t }
}

// WithArgon2Memory sets the memory usage in KiB (default: 64*1024).
func WithArgon2Memory(m uint32) Argon2Option {
	return func(h *Argon2Hasher) { h.memory = m }
}

// WithArgon2Threads sets the parallelism (default: 4).
func WithArgon2Threads(t uint8) Argon2Option {
	return func(h *Argon2Hasher) { h.threads = t }
}

// WithArgon2MinLength sets the minimum accepted password length (default: 8).
func WithArgon2MinLength(n int) Argon2Option {
	return func(h *Argon2Hasher) {
		if n > 0 {
			h.minLength = n
		}
	}
}

// NewArgon2Hasher creates an argon2id-based password hasher.
func NewArgon2Hasher(opts ...Argon2Option) *Argon2Hasher {
	h := defaultArgon2
	for _, opt := range opts {
		opt(&h)
	}
	return &h
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	if err := checkLength(password, h.minLength, 0); err != nil {
		return "", err
	}

	salt := make([]byte, h.saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("password: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)

	// $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$HASH
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Verify(password, encodedHash string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrMismatch
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return fmt.Errorf("password: parse argon2id params: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("password: decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("password: decode hash: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(expected)))
	if subtle.ConstantTimeCompare(key, expected) != 1 {
		return ErrMismatch
	}
	return nil
}
