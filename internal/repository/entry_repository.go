package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"caltrack/internal/model"
)

// EntryRepository defines food entry persistence operations. Every read and
// write is scoped by the owning user's id in the WHERE clause; a row id
// belonging to someone else matches nothing.
type EntryRepository interface {
	Create(ctx context.Context, entry *model.Entry) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error)
	Update(ctx context.Context, userID, id uuid.UUID, fields map[string]interface{}) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (int64, error)
	ListByDay(ctx context.Context, userID uuid.UUID, day model.Day) ([]model.Entry, error)
}

type entryRepository struct {
	db *gorm.DB
}

// NewEntryRepository creates a new entry repository.
func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

// Create inserts a new entry.
func (r *entryRepository) Create(ctx context.Context, entry *model.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByID finds an entry by id within the user's own rows.
func (r *entryRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error) {
	var entry model.Entry
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update replaces the mutable fields of the matched row. Returns the number
// of rows changed; zero means the id does not exist or is owned by a
// different user.
func (r *entryRepository) Update(ctx context.Context, userID, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Entry{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// Delete removes the matched row, again scoped by owner.
func (r *entryRepository) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Entry{})
	return res.RowsAffected, res.Error
}

// ListByDay lists the user's entries for a calendar day in display order.
func (r *entryRepository) ListByDay(ctx context.Context, userID uuid.UUID, day model.Day) ([]model.Entry, error) {
	var entries []model.Entry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND occurred_on = ?", userID, day).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
