package taskapp

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Accounts implements the account lifecycle: signup, login, logout of
// one or every device, profile updates, and account deletion. It is the
// only consumer of the password hasher and the token service; all
// writes go through the user store.
type Accounts struct {
	users      UserStore
	tasks      TaskStore
	tokens     TokenService
	mailer     Mailer
	logger     Logger
	authScheme string
}

// NewAccounts returns a new account service wired to the given store.
func NewAccounts(users UserStore, opts Config) *Accounts {
	tokens := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		defLogger{},
	)

	scheme := opts.GetAuthScheme()
	if scheme == "" {
		scheme = "Bearer"
	}

	return &Accounts{
		users:      users,
		tokens:     tokens,
		logger:     defLogger{},
		authScheme: scheme,
	}
}

func (a *Accounts) WithLogger(logger Logger) *Accounts {
	a.logger = logger
	return a
}

// WithMailer configures the notification collaborator. Without one,
// signup and deletion simply skip their notifications.
func (a *Accounts) WithMailer(mailer Mailer) *Accounts {
	a.mailer = mailer
	return a
}

// WithTasks configures the task store so account deletion can cascade.
func (a *Accounts) WithTasks(tasks TaskStore) *Accounts {
	a.tasks = tasks
	return a
}

// WithTokenService sets a custom token issuer/verifier.
func (a *Accounts) WithTokenService(tokens TokenService) *Accounts {
	a.tokens = tokens
	return a
}

// TokenService returns the TokenService instance used by this service
func (a *Accounts) TokenService() TokenService {
	return a.tokens
}

// SignupInput is the account creation payload.
type SignupInput struct {
	Name      string `form:"name" json:"name"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	Age       int    `form:"age" json:"age"`
	UseHashid bool   `form:"-" json:"-"`
}

// Validate will run validation rules
func (r SignupInput) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(&r.Password, validation.Required, ValidPassword()),
			validation.Field(&r.Age, validation.Min(0)),
		)
	}, "Invalid signup payload")
}

// Signup creates an account and issues its first token. The welcome
// notification is fire-and-forget: its failure never rolls back the
// account. Duplicate emails and weak passwords collapse into the same
// credential error as a failed login.
func (a *Accounts) Signup(ctx context.Context, input SignupInput) (*User, string, error) {
	if err := input.Validate(); err != nil {
		a.logger.Error("Signup validation failed", "error", err)
		return nil, "", ErrInvalidCredential
	}

	if existing, err := a.users.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		a.logger.Info("Signup rejected duplicate email")
		return nil, "", ErrInvalidCredential
	} else if err != nil && !repository.IsRecordNotFound(err) {
		return nil, "", errors.Wrap(err, errors.CategoryInternal, "failed to check email availability")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Name:         input.Name,
		Email:        input.Email,
		Age:          input.Age,
		PasswordHash: hash,
		ID:           uuid.New(),
	}

	if input.UseHashid {
		if id, err := hashid.NewUUID(input.Email); err == nil {
			user.ID = id
		}
	}

	token, err := a.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, "", err
	}
	user.AppendToken(token)

	if user, err = a.users.Insert(ctx, user); err != nil {
		if isConflict(err) {
			a.logger.Info("Signup lost insert race on email")
			return nil, "", ErrInvalidCredential
		}
		return nil, "", errors.Wrap(err, errors.CategoryInternal, "could not create user")
	}

	a.notify("welcome", user.Email, user.Name, a.sendWelcome)

	return user, token, nil
}

// Login verifies credentials and issues a fresh token for this device.
// An unknown email and a wrong password return the identical error.
func (a *Accounts) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, "", ErrInvalidCredential
		}
		return nil, "", errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during login")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, "", ErrInvalidCredential
	}

	token, err := a.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, "", err
	}

	user.AppendToken(token)
	if user, err = a.users.Save(ctx, user); err != nil {
		return nil, "", errors.Wrap(err, errors.CategoryInternal, "failed to persist session token")
	}

	return user, token, nil
}

// Authenticate resolves a raw Authorization header into the owning
// user and the presented token. A token is honored only while it is
// (a) well signed and unexpired and (b) still listed as active for the
// user. Every failure mode returns the same error.
func (a *Accounts) Authenticate(ctx context.Context, authorization string) (*User, string, error) {
	raw, err := extractBearerToken(authorization, a.authScheme)
	if err != nil {
		return nil, "", ErrUnauthenticated
	}
	return a.AuthenticateToken(ctx, raw)
}

// AuthenticateToken is Authenticate for callers that already hold the
// bare token, without the scheme prefix.
func (a *Accounts) AuthenticateToken(ctx context.Context, raw string) (*User, string, error) {
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		a.logger.Debug("Authenticate token validation failed", "error", err)
		return nil, "", ErrUnauthenticated
	}

	user, err := a.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			a.logger.Error("Authenticate user lookup failed", "error", err)
		}
		return nil, "", ErrUnauthenticated
	}

	if !user.HasToken(raw) {
		return nil, "", ErrUnauthenticated
	}

	return user, raw, nil
}

// LogoutOne revokes exactly the presented token. Calling it again with
// an already-removed token is a no-op, not an error.
func (a *Accounts) LogoutOne(ctx context.Context, user *User, token string) error {
	user.RemoveToken(token)
	if _, err := a.users.Save(ctx, user); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist logout")
	}
	return nil
}

// LogoutAll revokes every active token for the user.
func (a *Accounts) LogoutAll(ctx context.Context, user *User) error {
	user.ClearTokens()
	if _, err := a.users.Save(ctx, user); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist logout")
	}
	return nil
}

// UpdateFields mutates the fixed set of updatable fields. Any unknown
// key or invalid value fails the whole operation before a single field
// changes; a new password is re-hashed before it is persisted.
func (a *Accounts) UpdateFields(ctx context.Context, user *User, fields map[string]any) (*User, error) {
	for key := range fields {
		switch key {
		case "name", "email", "password", "age":
		default:
			return nil, ErrInvalidUpdate
		}
	}

	// stage every assignment so a bad value further down the map
	// leaves the record untouched in memory as well as in the store
	apply := make([]func(*User), 0, len(fields))

	for key, value := range fields {
		switch key {
		case "name":
			name, ok := value.(string)
			if !ok || strings.TrimSpace(name) == "" {
				return nil, ErrInvalidUpdate
			}
			apply = append(apply, func(u *User) { u.Name = name })
		case "email":
			email, ok := value.(string)
			if !ok {
				return nil, ErrInvalidUpdate
			}
			if err := validation.Validate(email, validation.Required, is.Email); err != nil {
				return nil, ErrInvalidUpdate
			}
			apply = append(apply, func(u *User) { u.Email = email })
		case "age":
			age, ok := numericToInt(value)
			if !ok || age < 0 {
				return nil, ErrInvalidUpdate
			}
			apply = append(apply, func(u *User) { u.Age = age })
		case "password":
			password, ok := value.(string)
			if !ok {
				return nil, ErrInvalidUpdate
			}
			if err := validation.Validate(password, validation.Required, ValidPassword()); err != nil {
				return nil, ErrInvalidUpdate
			}
			hash, err := HashPassword(password)
			if err != nil {
				return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
			}
			apply = append(apply, func(u *User) { u.PasswordHash = hash })
		}
	}

	for _, set := range apply {
		set(user)
	}

	updated, err := a.users.Save(ctx, user)
	if err != nil {
		if isConflict(err) {
			return nil, ErrInvalidUpdate
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist update")
	}

	return updated, nil
}

// GetUser fetches a user by its identifier.
func (a *Accounts) GetUser(ctx context.Context, id string) (*User, error) {
	return a.users.GetByID(ctx, id)
}

// SetAvatar stores the processed avatar bytes on the account. Passing
// nil clears the avatar.
func (a *Accounts) SetAvatar(ctx context.Context, user *User, avatar []byte) error {
	user.Avatar = avatar
	if _, err := a.users.Save(ctx, user); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist avatar")
	}
	return nil
}

// CreateTask records a task owned by the user.
func (a *Accounts) CreateTask(ctx context.Context, user *User, description string, completed bool) (*Task, error) {
	if err := validation.Validate(description, validation.Required); err != nil {
		return nil, ErrInvalidUpdate
	}

	task := &Task{
		Description: description,
		Completed:   completed,
		OwnerID:     user.ID,
	}

	task, err := a.tasks.Insert(ctx, task)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create task")
	}

	return task, nil
}

// UpdateTaskFields mutates the fixed set of updatable task fields with
// the same all-or-nothing key check as UpdateFields.
func (a *Accounts) UpdateTaskFields(ctx context.Context, task *Task, fields map[string]any) (*Task, error) {
	for key := range fields {
		switch key {
		case "description", "completed":
		default:
			return nil, ErrInvalidUpdate
		}
	}

	for key, value := range fields {
		switch key {
		case "description":
			description, ok := value.(string)
			if !ok || strings.TrimSpace(description) == "" {
				return nil, ErrInvalidUpdate
			}
			task.Description = description
		case "completed":
			completed, ok := value.(bool)
			if !ok {
				return nil, ErrInvalidUpdate
			}
			task.Completed = completed
		}
	}

	updated, err := a.tasks.Save(ctx, task)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist task update")
	}

	return updated, nil
}

// Delete destroys the account. The record going away revokes every
// token implicitly; owned tasks go with it, and the cancellation
// notification is fire-and-forget like the welcome one.
func (a *Accounts) Delete(ctx context.Context, user *User) error {
	if a.tasks != nil {
		if err := a.tasks.DeleteByOwner(ctx, user.ID.String()); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to remove owned tasks")
		}
	}

	if err := a.users.Delete(ctx, user); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete account")
	}

	a.notify("cancellation", user.Email, user.Name, a.sendCancellation)

	return nil
}

func (a *Accounts) sendWelcome(ctx context.Context, email, name string) error {
	return a.mailer.SendWelcome(ctx, email, name)
}

func (a *Accounts) sendCancellation(ctx context.Context, email, name string) error {
	return a.mailer.SendCancellation(ctx, email, name)
}

// notify dispatches a notification without blocking the caller.
// Failures are logged and swallowed, never surfaced.
func (a *Accounts) notify(kind, email, name string, send func(context.Context, string, string) error) {
	if a.mailer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := send(ctx, email, name); err != nil {
			a.logger.Error("account notification failed", "kind", kind, "error", err)
		}
	}()
}

func extractBearerToken(authorization, scheme string) (string, error) {
	l := len(scheme)
	if l == 0 {
		return "", ErrUnauthenticated
	}
	if len(authorization) > l+1 && strings.EqualFold(authorization[:l], scheme) {
		return strings.TrimSpace(authorization[l:]), nil
	}
	return "", ErrUnauthenticated
}

func numericToInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Category == errors.CategoryConflict {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
