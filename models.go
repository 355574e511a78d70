package accounts

import (
	"time"

	"github.com/goliatone/go-accounts/store"
	"github.com/uptrace/bun"
)

// Account is a registered user
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	store.Entity
	Email        string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	PasswordSalt string     `bun:"password_salt,notnull" json:"-"`
	Verified     bool       `bun:"verified,notnull" json:"verified"`
	Role         Role       `bun:"role,notnull" json:"role,omitempty"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt    *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AccountSchema describes the accounts table
var AccountSchema = store.Schema{
	Name:           "accounts",
	SoftDelete:     true,
	ServerComputed: []string{"created_at", "updated_at", "deleted_at"},
}

// VerificationToken proves control over the email of an account.
// An account holds at most one token, older ones are removed before a
// new one is issued.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vt"`
	store.Entity
	AccountID string     `bun:"account_id,notnull" json:"account_id"`
	Account   *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	ExpiresAt time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// VerificationTokenSchema describes the verification_tokens table
var VerificationTokenSchema = store.Schema{
	Name:           "verification_tokens",
	ServerComputed: []string{"created_at"},
}

// Expired reports whether the token can no longer be used at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
