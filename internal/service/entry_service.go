package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"caltrack/internal/cache"
	apperrors "caltrack/internal/errors"
	"caltrack/internal/model"
	"caltrack/internal/repository"
)

const dayViewCacheTTL = 5 * time.Minute

// MutationStatus discriminates the outcome of a mutation. Form handlers map
// these onto redirects and API handlers onto status codes; the contract
// itself never panics or throws out of a submission.
type MutationStatus string

const (
	// MutationOK means the mutation (possibly a no-op) succeeded.
	MutationOK MutationStatus = "ok"
	// MutationInvalid means input validation failed and nothing changed.
	MutationInvalid MutationStatus = "invalid"
	// MutationUnauthorized means no authenticated user was supplied.
	MutationUnauthorized MutationStatus = "unauthorized"
	// MutationStoreFailed means the store rejected the operation.
	MutationStoreFailed MutationStatus = "store_failed"
)

// MutationResult is the discriminated outcome of create/update/delete.
type MutationResult struct {
	Status MutationStatus
	Fields []string // offending fields when Status == MutationInvalid
	Entry  *model.Entry
	Err    error
}

// OK reports whether the mutation succeeded.
func (r MutationResult) OK() bool {
	return r.Status == MutationOK
}

// EntryInput carries the form- or JSON-encoded fields of a mutation.
// Calories arrive already coerced to int by the binder; a non-numeric value
// is a bind error upstream of validation.
type EntryInput struct {
	ID         string `form:"id" json:"id" validate:"omitempty,uuid"`
	OccurredOn string `form:"occurred_on" json:"occurred_on" validate:"required,datetime=2006-01-02"`
	Name       string `form:"name" json:"name" validate:"required,min=1,max=200"`
	Calories   int    `form:"calories" json:"calories" validate:"min=0,max=100000"`
	Barcode    string `form:"barcode" json:"barcode" validate:"omitempty,max=64"`
}

// DaySummary is the data behind the main view: the day's entries plus the
// running total against the fixed goal.
type DaySummary struct {
	Date          model.Day     `json:"date"`
	Entries       []model.Entry `json:"entries"`
	TotalCalories int           `json:"total_calories"`
	Goal          int           `json:"goal"`
	Remaining     int           `json:"remaining"`
}

// EntryService implements the mutation contract and the cached day view.
type EntryService interface {
	Create(ctx context.Context, userID uuid.UUID, input EntryInput) MutationResult
	Update(ctx context.Context, userID uuid.UUID, input EntryInput) MutationResult
	Delete(ctx context.Context, userID uuid.UUID, rawID string) MutationResult
	DaySummary(ctx context.Context, userID uuid.UUID, day string) (*DaySummary, error)
	InvalidateDay(ctx context.Context, userID uuid.UUID, day model.Day)
}

type entryService struct {
	repo     repository.EntryRepository
	cache    *cache.Client
	validate *validator.Validate
	goal     int
}

// NewEntryService creates a new entry service with the given daily goal.
func NewEntryService(repo repository.EntryRepository, cache *cache.Client, dailyGoal int) EntryService {
	return &entryService{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		goal:     dailyGoal,
	}
}

func (s *entryService) cacheKey(userID uuid.UUID, day model.Day) string {
	return fmt.Sprintf("entries:%s:%s", userID, day)
}

// checkInput validates a mutation input and returns the offending fields.
func (s *entryService) checkInput(input EntryInput) []string {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return fields
	}
	return []string{"input"}
}

func barcodePtr(barcode string) *string {
	if barcode == "" {
		return nil
	}
	return &barcode
}

// Create validates input and inserts a new entry owned by userID.
func (s *entryService) Create(ctx context.Context, userID uuid.UUID, input EntryInput) MutationResult {
	if fields := s.checkInput(input); fields != nil {
		return MutationResult{Status: MutationInvalid, Fields: fields}
	}
	if userID == uuid.Nil {
		return MutationResult{Status: MutationUnauthorized}
	}

	entry := &model.Entry{
		UserID:     userID,
		OccurredOn: model.Day(input.OccurredOn),
		Name:       input.Name,
		Calories:   input.Calories,
		Barcode:    barcodePtr(input.Barcode),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return MutationResult{Status: MutationStoreFailed, Err: err}
	}

	s.InvalidateDay(ctx, userID, entry.OccurredOn)
	return MutationResult{Status: MutationOK, Entry: entry}
}

// Update replaces occurred_on, name, calories and barcode on the user's own
// row. An id that does not exist, or that belongs to a different user, is a
// no-op that still reports MutationOK.
func (s *entryService) Update(ctx context.Context, userID uuid.UUID, input EntryInput) MutationResult {
	if input.ID == "" {
		return MutationResult{Status: MutationInvalid, Fields: []string{"ID"}}
	}
	if fields := s.checkInput(input); fields != nil {
		return MutationResult{Status: MutationInvalid, Fields: fields}
	}
	if userID == uuid.Nil {
		return MutationResult{Status: MutationUnauthorized}
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return MutationResult{Status: MutationInvalid, Fields: []string{"ID"}}
	}

	existing, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MutationResult{Status: MutationOK}
		}
		return MutationResult{Status: MutationStoreFailed, Err: err}
	}

	fields := map[string]interface{}{
		"occurred_on": model.Day(input.OccurredOn),
		"name":        input.Name,
		"calories":    input.Calories,
		"barcode":     barcodePtr(input.Barcode),
	}
	if _, err := s.repo.Update(ctx, userID, id, fields); err != nil {
		return MutationResult{Status: MutationStoreFailed, Err: err}
	}

	// Moving an entry between days stales both day views.
	s.InvalidateDay(ctx, userID, existing.OccurredOn)
	s.InvalidateDay(ctx, userID, model.Day(input.OccurredOn))
	return MutationResult{Status: MutationOK}
}

// Delete removes the user's own row. Unknown ids are a no-op.
func (s *entryService) Delete(ctx context.Context, userID uuid.UUID, rawID string) MutationResult {
	if rawID == "" {
		return MutationResult{Status: MutationInvalid, Fields: []string{"ID"}}
	}
	if userID == uuid.Nil {
		return MutationResult{Status: MutationUnauthorized}
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return MutationResult{Status: MutationInvalid, Fields: []string{"ID"}}
	}

	existing, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MutationResult{Status: MutationOK}
		}
		return MutationResult{Status: MutationStoreFailed, Err: err}
	}

	if _, err := s.repo.Delete(ctx, userID, id); err != nil {
		return MutationResult{Status: MutationStoreFailed, Err: err}
	}

	s.InvalidateDay(ctx, userID, existing.OccurredOn)
	return MutationResult{Status: MutationOK}
}

// DaySummary returns the user's entries and running total for a day, read
// through the per-user per-day cache. An empty day defaults to today.
func (s *entryService) DaySummary(ctx context.Context, userID uuid.UUID, day string) (*DaySummary, error) {
	if day == "" {
		day = time.Now().Format("2006-01-02")
	}
	if err := s.validate.Var(day, "datetime=2006-01-02"); err != nil {
		return nil, apperrors.ErrInvalidDate
	}
	d := model.Day(day)

	if data, _ := s.cache.Get(ctx, s.cacheKey(userID, d)); data != nil {
		var cached DaySummary
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	entries, err := s.repo.ListByDay(ctx, userID, d)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	total := 0
	for _, e := range entries {
		total += e.Calories
	}
	summary := &DaySummary{
		Date:          d,
		Entries:       entries,
		TotalCalories: total,
		Goal:          s.goal,
		Remaining:     s.goal - total,
	}

	if payload, err := json.Marshal(summary); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(userID, d), payload, dayViewCacheTTL)
	}
	return summary, nil
}

// InvalidateDay drops the cached day view for one user and one day only.
func (s *entryService) InvalidateDay(ctx context.Context, userID uuid.UUID, day model.Day) {
	_ = s.cache.Delete(ctx, s.cacheKey(userID, day))
}
