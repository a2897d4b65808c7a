package taskapp

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tasks persists the protected task resource. Account deletion uses
// DeleteByOwner to destroy a user's tasks together with the account.
type Tasks interface {
	TaskStore
	CreateTx(ctx context.Context, tx bun.IDB, record *Task, criteria ...repository.InsertCriteria) (*Task, error)
}

type tasks struct {
	repository.Repository[*Task]
	db *bun.DB
}

var (
	_ Tasks     = (*tasks)(nil)
	_ TaskStore = (*tasks)(nil)
)

func NewTasksRepository(db *bun.DB) Tasks {
	repo := repository.NewRepository[*Task](db, repository.ModelHandlers[*Task]{
		NewRecord: func() *Task { return &Task{} },
		GetID: func(t *Task) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Task, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &tasks{
		Repository: repo,
		db:         db,
	}
}

func (a *tasks) GetByID(ctx context.Context, id string) (*Task, error) {
	tid, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id})
	}

	record := &Task{}
	err = a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", tid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id})
		}
		return nil, err
	}

	return record, nil
}

func (a *tasks) ListByOwner(ctx context.Context, ownerID string) ([]*Task, error) {
	oid, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"owner_id": ownerID})
	}

	var records []*Task
	err = a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", oid).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *tasks) Insert(ctx context.Context, record *Task) (*Task, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, a.db, record)
}

func (a *tasks) Save(ctx context.Context, record *Task) (*Task, error) {
	now := time.Now()
	record.UpdatedAt = &now

	res, err := a.db.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": record.ID.String()})
	}

	return record, nil
}

func (a *tasks) Delete(ctx context.Context, record *Task) error {
	_, err := a.db.NewDelete().
		Model(record).
		WherePK().
		Exec(ctx)
	return err
}

func (a *tasks) DeleteByOwner(ctx context.Context, ownerID string) error {
	oid, err := uuid.Parse(ownerID)
	if err != nil {
		return nil
	}

	_, err = a.db.NewDelete().
		Model((*Task)(nil)).
		Where("owner_id = ?", oid).
		Exec(ctx)
	return err
}
