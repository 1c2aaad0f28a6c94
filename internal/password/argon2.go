package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/bengobox/church-admin/internal/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidHash indicates the stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrMismatch indicates the password does not match the stored hash.
	ErrMismatch = errors.New("password mismatch")
)

// Hasher produces and verifies Argon2id hashes in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>.
// Hashes written by the previous bcrypt-based deployment still verify.
type Hasher struct {
	time      uint32
	memory    uint32
	threads   uint8
	keyLength uint32
	saltLen   uint32
}

// NewHasher constructs a Hasher from security settings.
func NewHasher(cfg config.SecurityConfig) *Hasher {
	h := &Hasher{
		time:      cfg.Argon2Time,
		memory:    cfg.Argon2Memory,
		threads:   cfg.Argon2Threads,
		keyLength: cfg.Argon2KeyLength,
		saltLen:   cfg.Argon2SaltLength,
	}
	if h.time == 0 {
		h.time = 3
	}
	if h.memory == 0 {
		h.memory = 64 * 1024
	}
	if h.threads == 0 {
		h.threads = 2
	}
	if h.keyLength == 0 {
		h.keyLength = 32
	}
	if h.saltLen == 0 {
		h.saltLen = 16
	}
	return h
}

// Hash creates a new Argon2id hash for the supplied plain text password.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare verifies that the specified password matches the stored hash.
func (h *Hasher) Compare(hash string, password string) error {
	if isBcrypt(hash) {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return ErrMismatch
			}
			return fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
		return nil
	}

	params, salt, key, err := decode(hash)
	if err != nil {
		return err
	}
	other := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(key)))
	if subtle.ConstantTimeCompare(key, other) != 1 {
		return ErrMismatch
	}
	return nil
}

// NeedsRehash reports whether hash was produced by a legacy algorithm or
// with parameters weaker than the current configuration.
func (h *Hasher) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	params, _, _, err := decode(hash)
	if err != nil {
		return true
	}
	return params.time < h.time || params.memory < h.memory || params.threads < h.threads
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decode(hash string) (argonParams, []byte, []byte, error) {
	var p argonParams
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	return p, salt, key, nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
