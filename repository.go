package amyrose

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entity is any soft-deletable record the repository can manage. Root
// entities report uuid.Nil as their owner.
type Entity interface {
	GetID() uuid.UUID
	SetID(uuid.UUID)
	GetOwnerID() uuid.UUID
}

// Patch is a typed update for one entity kind. Pointer fields distinguish
// "absent" from "explicitly set"; a set bool false is a legitimate value,
// a set empty string is not.
type Patch[T any] interface {
	Validate() error
	Apply(record T) []string
}

// ModelHandlers wires a model type into the generic repository.
type ModelHandlers[T Entity] struct {
	Name      string
	NewRecord func() T
	// OwnerColumn names the parent relation column; empty for root entities.
	OwnerColumn string
	// Validate runs the create-time emptiness checks for the model.
	Validate func(T) error
}

// Repository is the generic data-access layer: typed CRUD with soft deletion
// and empty-field validation. Reads exclude soft-deleted rows; updates apply
// regardless of deleted state so records can be audited or revived.
type Repository[T Entity] struct {
	db       *bun.DB
	handlers ModelHandlers[T]
}

func NewRepository[T Entity](db *bun.DB, handlers ModelHandlers[T]) *Repository[T] {
	return &Repository[T]{db: db, handlers: handlers}
}

// DB exposes the underlying handle for queries the generic surface cannot
// express, such as the conditional session consume.
func (r *Repository[T]) DB() *bun.DB {
	return r.db
}

// All returns every non-deleted record.
func (r *Repository[T]) All(ctx context.Context) ([]T, error) {
	var records []T
	if err := r.db.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "could not list "+r.handlers.Name)
	}
	return records, nil
}

// AllByOwner returns every non-deleted record owned by ownerID.
func (r *Repository[T]) AllByOwner(ctx context.Context, ownerID uuid.UUID) ([]T, error) {
	if r.handlers.OwnerColumn == "" {
		return nil, errors.New(r.handlers.Name+" has no owner relation", errors.CategoryOperation)
	}
	var records []T
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.? = ?", bun.Ident(r.handlers.OwnerColumn), ownerID).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "could not list "+r.handlers.Name+" by owner")
	}
	return records, nil
}

// Get returns the first non-deleted record matching id.
func (r *Repository[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	record := r.handlers.NewRecord()
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return record, r.selectErr(err)
	}
	return record, nil
}

// GetByOwner returns the first non-deleted record owned by ownerID.
func (r *Repository[T]) GetByOwner(ctx context.Context, ownerID uuid.UUID) (T, error) {
	record := r.handlers.NewRecord()
	if r.handlers.OwnerColumn == "" {
		return record, errors.New(r.handlers.Name+" has no owner relation", errors.CategoryOperation)
	}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.? = ?", bun.Ident(r.handlers.OwnerColumn), ownerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return record, r.selectErr(err)
	}
	return record, nil
}

// GetDeleted returns the record matching id whether or not it was soft
// deleted. Used for auditing and by Update.
func (r *Repository[T]) GetDeleted(ctx context.Context, id uuid.UUID) (T, error) {
	record := r.handlers.NewRecord()
	err := r.db.NewSelect().Model(record).
		WhereAllWithDeleted().
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return record, r.selectErr(err)
	}
	return record, nil
}

// Create validates and persists a new record, assigning an id when absent.
func (r *Repository[T]) Create(ctx context.Context, record T) (T, error) {
	if r.handlers.Validate != nil {
		if err := r.handlers.Validate(record); err != nil {
			return record, err
		}
	}
	if record.GetID() == uuid.Nil {
		record.SetID(uuid.New())
	}
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return record, errors.Wrap(err, errors.CategoryOperation, "could not create "+r.handlers.Name)
	}
	return record, nil
}

// Update validates the patch and persists it against the record matching id,
// regardless of deleted state.
func (r *Repository[T]) Update(ctx context.Context, id uuid.UUID, patch Patch[T]) (T, error) {
	var zero T
	if err := patch.Validate(); err != nil {
		return zero, err
	}

	record, err := r.GetDeleted(ctx, id)
	if err != nil {
		return zero, err
	}

	columns := patch.Apply(record)
	if len(columns) == 0 {
		return record, nil
	}

	_, err = r.db.NewUpdate().Model(record).
		Column(columns...).
		WhereAllWithDeleted().
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return zero, errors.Wrap(err, errors.CategoryOperation, "could not update "+r.handlers.Name)
	}
	return record, nil
}

// Delete soft-deletes the record matching id. Rows are never physically
// removed; default reads exclude them from then on.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	record := r.handlers.NewRecord()
	record.SetID(id)
	res, err := r.db.NewDelete().Model(record).WherePK().Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "could not delete "+r.handlers.Name)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewRecordNotFound(r.handlers.Name)
	}
	return nil
}

func (r *Repository[T]) selectErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NewRecordNotFound(r.handlers.Name)
	}
	return errors.Wrap(err, errors.CategoryOperation, "could not query "+r.handlers.Name)
}

type fieldValue struct {
	name  string
	value string
}

// checkEmpty rejects any provided string field that is empty. Boolean fields
// never pass through here: false is a legitimate value.
func checkEmpty(fields ...fieldValue) error {
	for _, f := range fields {
		if f.value == "" {
			return NewEmptyFieldError(f.name)
		}
	}
	return nil
}
