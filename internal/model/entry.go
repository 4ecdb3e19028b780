package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Day is a calendar date carried in its ISO YYYY-MM-DD form. Entries are
// keyed and aggregated by this literal string, so no timezone conversion
// ever happens between the database and the API.
type Day string

// Value implements driver.Valuer.
func (d Day) Value() (driver.Value, error) {
	return string(d), nil
}

// Scan implements sql.Scanner. Postgres date columns may arrive as
// time.Time or as text depending on the driver mode.
func (d *Day) Scan(v interface{}) error {
	switch t := v.(type) {
	case time.Time:
		*d = Day(t.Format("2006-01-02"))
	case string:
		*d = Day(t)
	case []byte:
		*d = Day(t)
	case nil:
		*d = ""
	default:
		return fmt.Errorf("unsupported day value %T", v)
	}
	return nil
}

// Entry is a single food-consumption record owned by exactly one user.
type Entry struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_food_entries_user_day"`
	OccurredOn Day       `json:"occurred_on" gorm:"type:date;not null;index:idx_food_entries_user_day"`
	Name       string    `json:"name" gorm:"size:200;not null"`
	Calories   int       `json:"calories" gorm:"not null"`
	Barcode    *string   `json:"barcode,omitempty" gorm:"size:64"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName keeps the table name the clients already know.
func (Entry) TableName() string {
	return "food_entries"
}

// BeforeCreate sets UUID before creating the record.
func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
