package taskapp

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds account service options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAuthScheme() string
	GetContextKey() string
}

// UserStore is the credential store adapter: everything the account
// core needs from persistence. The bun-backed Users repository is the
// production implementation; tests swap in an in-memory one.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, user *User) error
}

// TaskStore is consumed by account deletion to cascade-remove the
// tasks a user owns, and by the task routes.
type TaskStore interface {
	GetByID(ctx context.Context, id string) (*Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Task, error)
	Insert(ctx context.Context, task *Task) (*Task, error)
	Save(ctx context.Context, task *Task) (*Task, error)
	Delete(ctx context.Context, task *Task) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}

// TokenService issues and verifies signed bearer tokens. Validate is a
// pure cryptographic/structural check; it never consults the store.
type TokenService interface {
	Issue(userID string) (string, error)
	Validate(tokenString string) (*SessionClaims, error)
}

// Mailer delivers account notifications. Implementations must be safe
// for concurrent use; the account service calls them fire-and-forget.
type Mailer interface {
	SendWelcome(ctx context.Context, email, name string) error
	SendCancellation(ctx context.Context, email, name string) error
}

// AvatarProcessor normalizes an uploaded image into the stored avatar
// representation. Owned by the avatar-upload collaborator.
type AvatarProcessor interface {
	Process(data []byte) ([]byte, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] TASKAPP "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] TASKAPP "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] TASKAPP "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
