package taskapp_test

import (
	"context"
	"sync"

	taskapp "github.com/Buanaoda/task-app"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func testConfig() taskapp.SimpleConfig {
	return taskapp.SimpleConfig{
		SigningKey:      "test-signing-key",
		TokenExpiration: 1,
		Issuer:          "task-app-test",
		AuthScheme:      "Bearer",
		ContextKey:      "user",
	}
}

// memUserStore is an in-memory UserStore with the same error semantics
// as the bun-backed repository.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*taskapp.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*taskapp.User{}}
}

func (s *memUserStore) GetByID(ctx context.Context, id string) (*taskapp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return cloneUser(user), nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*taskapp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (s *memUserStore) Insert(ctx context.Context, user *taskapp.User) (*taskapp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return nil, errors.New("duplicate email", errors.CategoryConflict)
		}
	}

	s.users[user.ID.String()] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *memUserStore) Save(ctx context.Context, user *taskapp.User) (*taskapp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID.String()]; !ok {
		return nil, repository.NewRecordNotFound()
	}

	for id, existing := range s.users {
		if id != user.ID.String() && existing.Email == user.Email {
			return nil, errors.New("duplicate email", errors.CategoryConflict)
		}
	}

	s.users[user.ID.String()] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *memUserStore) Delete(ctx context.Context, user *taskapp.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID.String()]; !ok {
		return repository.NewRecordNotFound()
	}
	delete(s.users, user.ID.String())
	return nil
}

func cloneUser(u *taskapp.User) *taskapp.User {
	out := *u
	out.Tokens = append(taskapp.TokenList{}, u.Tokens...)
	out.Avatar = append([]byte(nil), u.Avatar...)
	return &out
}

// memTaskStore is the in-memory TaskStore counterpart.
type memTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*taskapp.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: map[string]*taskapp.Task{}}
}

func (s *memTaskStore) GetByID(ctx context.Context, id string) (*taskapp.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	out := *task
	return &out, nil
}

func (s *memTaskStore) ListByOwner(ctx context.Context, ownerID string) ([]*taskapp.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*taskapp.Task{}
	for _, task := range s.tasks {
		if task.OwnerID.String() == ownerID {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memTaskStore) Insert(ctx context.Context, task *taskapp.Task) (*taskapp.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	copied := *task
	s.tasks[task.ID.String()] = &copied
	out := *task
	return &out, nil
}

func (s *memTaskStore) Save(ctx context.Context, task *taskapp.Task) (*taskapp.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID.String()]; !ok {
		return nil, repository.NewRecordNotFound()
	}
	copied := *task
	s.tasks[task.ID.String()] = &copied
	out := *task
	return &out, nil
}

func (s *memTaskStore) Delete(ctx context.Context, task *taskapp.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID.String()]; !ok {
		return repository.NewRecordNotFound()
	}
	delete(s.tasks, task.ID.String())
	return nil
}

func (s *memTaskStore) DeleteByOwner(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, task := range s.tasks {
		if task.OwnerID.String() == ownerID {
			delete(s.tasks, id)
		}
	}
	return nil
}

// MockMailer implements taskapp.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendWelcome(ctx context.Context, email, name string) error {
	args := m.Called(ctx, email, name)
	return args.Error(0)
}

func (m *MockMailer) SendCancellation(ctx context.Context, email, name string) error {
	args := m.Called(ctx, email, name)
	return args.Error(0)
}
