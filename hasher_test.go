package accounts_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashers(t *testing.T) {
	hashers := map[string]accounts.PasswordHasher{
		"argon2id": fastHasher(),
		"bcrypt":   accounts.NewBcryptHasher(bcrypt.MinCost),
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			salt, err := h.NewSalt()
			require.NoError(t, err)
			require.NotEmpty(t, salt)

			other, err := h.NewSalt()
			require.NoError(t, err)
			assert.NotEqual(t, salt, other)

			hash, err := h.Hash("correct horse", salt)
			require.NoError(t, err)
			assert.NotContains(t, hash, "correct horse")

			assert.True(t, h.Verify("correct horse", salt, hash))
			assert.False(t, h.Verify("wrong horse", salt, hash))
			assert.False(t, h.Verify("correct horse", other, hash))
			assert.False(t, h.Verify("correct horse", salt, "not-a-hash"))
			assert.False(t, h.Verify("correct horse", salt, ""))

			_, err = h.Hash("", salt)
			assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
		})
	}
}

func TestBcryptHasherLongPasswords(t *testing.T) {
	h := accounts.NewBcryptHasher(bcrypt.MinCost)
	long := strings.Repeat("a", 100)

	hash, err := h.Hash(long, "salt")
	require.NoError(t, err)

	assert.True(t, h.Verify(long, "salt", hash))
	assert.False(t, h.Verify(long+"b", "salt", hash))
	assert.False(t, h.Verify(long[:72], "salt", hash))
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, accounts.NewBcryptHasher(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, accounts.NewBcryptHasher(bcrypt.MaxCost+1).Cost)
	assert.Equal(t, 12, accounts.NewBcryptHasher(12).Cost)
}

func TestArgon2HasherDefaults(t *testing.T) {
	h := accounts.NewArgon2Hasher()
	assert.Equal(t, uint32(3), h.Time)
	assert.Equal(t, uint32(64*1024), h.Memory)
	assert.Equal(t, uint8(4), h.Threads)
	assert.Equal(t, uint32(32), h.KeyLen)
}
