package taskapp

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuthToken is one entry in a user's active-token list. Only the
// serialized token string is kept; the claims live inside it.
type AuthToken struct {
	Token string `json:"token"`
}

// TokenList is the active-token list, stored as a JSON document on the
// user row so the whole record updates atomically.
type TokenList []AuthToken

var _ driver.Valuer = (TokenList)(nil)

func (t TokenList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TokenList) Scan(src any) error {
	if src == nil {
		*t = nil
		return nil
	}

	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported token list source type %T", src)
	}

	if len(b) == 0 {
		*t = nil
		return nil
	}

	return json.Unmarshal(b, t)
}

// Contains reports whether the exact token string is in the list.
func (t TokenList) Contains(token string) bool {
	for _, entry := range t {
		if entry.Token == token {
			return true
		}
	}
	return false
}

// Without returns the list with every entry equal to token removed.
// Duplicate strings revoke together.
func (t TokenList) Without(token string) TokenList {
	out := make(TokenList, 0, len(t))
	for _, entry := range t {
		if entry.Token != token {
			out = append(out, entry)
		}
	}
	return out
}

// User is the account model. The password hash, the token list, and the
// raw avatar bytes never serialize to JSON.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Age           int        `bun:"age" json:"age"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Tokens        TokenList  `bun:"tokens,type:jsonb" json:"-"`
	Avatar        []byte     `bun:"avatar" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AppendToken records a newly issued token as active.
func (u *User) AppendToken(token string) *User {
	u.Tokens = append(u.Tokens, AuthToken{Token: token})
	return u
}

// RemoveToken revokes every entry matching the exact token string.
// Removing an absent token is a no-op.
func (u *User) RemoveToken(token string) *User {
	u.Tokens = u.Tokens.Without(token)
	return u
}

// ClearTokens revokes every active token.
func (u *User) ClearTokens() *User {
	u.Tokens = TokenList{}
	return u
}

// HasToken reports whether the token is still active for this user.
func (u *User) HasToken(token string) bool {
	return u.Tokens.Contains(token)
}

// Task is the protected resource owned by a user. Tasks are destroyed
// together with the owning account.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:tsk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Description   string     `bun:"description,notnull" json:"description,omitempty"`
	Completed     bool       `bun:"completed,notnull" json:"completed"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
