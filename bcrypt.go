package accounts

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes salt and password with bcrypt. The pair is first
// reduced with SHA-256 so long passwords stay under the bcrypt input limit.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is out of range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{Cost: cost}
}

func (b BcryptHasher) NewSalt() (string, error) {
	return randomSalt(defaultSaltLen)
}

// Hash will generate a password hash
func (b BcryptHasher) Hash(password, salt string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword(prehash(password, salt), b.cost())
	return string(h), err
}

// Verify will validate the given cleartext password matches the hash
func (b BcryptHasher) Verify(password, salt, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(password, salt)) == nil
}

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func prehash(password, salt string) []byte {
	sum := sha256.Sum256([]byte(salt + ":" + password))
	out := make([]byte, base64.RawStdEncoding.EncodedLen(len(sum)))
	base64.RawStdEncoding.Encode(out, sum[:])
	return out
}
