package accounts

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

const defaultSaltLen = 16

// Argon2Hasher derives argon2id keys from a password and salt.
type Argon2Hasher struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// NewArgon2Hasher returns the default hasher, tuned to the RFC 9106
// second recommended option.
func NewArgon2Hasher() Argon2Hasher {
	return Argon2Hasher{
		Time:    3,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
		SaltLen: defaultSaltLen,
	}
}

func (a Argon2Hasher) NewSalt() (string, error) {
	n := a.SaltLen
	if n <= 0 {
		n = defaultSaltLen
	}
	return randomSalt(n)
}

func (a Argon2Hasher) Hash(password, salt string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	return base64.RawStdEncoding.EncodeToString(a.derive(password, salt)), nil
}

func (a Argon2Hasher) Verify(password, salt, hash string) bool {
	want, err := base64.RawStdEncoding.DecodeString(hash)
	if err != nil {
		want = nil
	}
	got := a.derive(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func (a Argon2Hasher) derive(password, salt string) []byte {
	return argon2.IDKey([]byte(password), []byte(salt), a.Time, a.Memory, a.Threads, a.KeyLen)
}

func randomSalt(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(b), nil
}
