package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	apperrors "caltrack/internal/errors"
	"caltrack/internal/model"
	"caltrack/internal/repository"
)

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *model.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entry), args.Error(1)
}

func (m *MockEntryRepository) Update(ctx context.Context, userID, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	args := m.Called(ctx, userID, id, fields)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEntryRepository) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEntryRepository) ListByDay(ctx context.Context, userID uuid.UUID, day model.Day) ([]model.Entry, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Entry), args.Error(1)
}

func validInput() EntryInput {
	return EntryInput{
		OccurredOn: "2024-06-01",
		Name:       "Apple",
		Calories:   95,
	}
}

func TestEntryService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EntryInput)
	}{
		{"negative calories", func(in *EntryInput) { in.Calories = -1 }},
		{"calories above cap", func(in *EntryInput) { in.Calories = 100001 }},
		{"empty name", func(in *EntryInput) { in.Name = "" }},
		{"name too long", func(in *EntryInput) { in.Name = strings.Repeat("x", 201) }},
		{"impossible date", func(in *EntryInput) { in.OccurredOn = "2024-13-40" }},
		{"non-ISO date", func(in *EntryInput) { in.OccurredOn = "06/01/2024" }},
		{"barcode too long", func(in *EntryInput) { in.Barcode = strings.Repeat("1", 65) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockEntryRepository)
			svc := NewEntryService(repo, nil, 2000)

			input := validInput()
			tt.mutate(&input)

			res := svc.Create(context.Background(), uuid.New(), input)

			assert.Equal(t, MutationInvalid, res.Status)
			assert.NotEmpty(t, res.Fields)
			repo.AssertNotCalled(t, "Create")
		})
	}
}

func TestEntryService_Create_Unauthorized(t *testing.T) {
	repo := new(MockEntryRepository)
	svc := NewEntryService(repo, nil, 2000)

	res := svc.Create(context.Background(), uuid.Nil, validInput())

	assert.Equal(t, MutationUnauthorized, res.Status)
	repo.AssertNotCalled(t, "Create")
}

func TestEntryService_Create_Success(t *testing.T) {
	repo := new(MockEntryRepository)
	svc := NewEntryService(repo, nil, 2000)
	userID := uuid.New()

	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Entry")).Return(nil)

	input := validInput()
	input.Barcode = "4006381333931"
	res := svc.Create(context.Background(), userID, input)

	assert.Equal(t, MutationOK, res.Status)
	if assert.NotNil(t, res.Entry) {
		assert.Equal(t, userID, res.Entry.UserID)
		assert.Equal(t, model.Day("2024-06-01"), res.Entry.OccurredOn)
		assert.Equal(t, "Apple", res.Entry.Name)
		assert.Equal(t, 95, res.Entry.Calories)
		if assert.NotNil(t, res.Entry.Barcode) {
			assert.Equal(t, "4006381333931", *res.Entry.Barcode)
		}
	}
	repo.AssertExpectations(t)
}

func TestEntryService_Create_StoreFailure(t *testing.T) {
	repo := new(MockEntryRepository)
	svc := NewEntryService(repo, nil, 2000)

	repo.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrInvalidDB)

	res := svc.Create(context.Background(), uuid.New(), validInput())

	assert.Equal(t, MutationStoreFailed, res.Status)
	assert.Error(t, res.Err)
}

func TestEntryService_Update_MissingRowIsNoop(t *testing.T) {
	repo := new(MockEntryRepository)
	svc := NewEntryService(repo, nil, 2000)
	userID := uuid.New()

	repo.On("FindByID", mock.Anything, userID, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	input := validInput()
	input.ID = uuid.New().String()
	res := svc.Update(context.Background(), userID, input)

	assert.Equal(t, MutationOK, res.Status)
	repo.AssertNotCalled(t, "Update")
}

func TestEntryService_Update_RequiresID(t *testing.T) {
	repo := new(MockEntryRepository)
	svc := NewEntryService(repo, nil, 2000)

	res := svc.Update(context.Background(), uuid.New(), validInput())

	assert.Equal(t, MutationInvalid, res.Status)
	assert.Contains(t, res.Fields, "ID")
	repo.AssertNotCalled(t, "FindByID")
}

func TestEntryService_Update_Success(t *testing.T) {
	repo := new(MockEntryRepository)
	svc := NewEntryService(repo, nil, 2000)
	userID := uuid.New()
	entryID := uuid.New()

	existing := &model.Entry{ID: entryID, UserID: userID, OccurredOn: "2024-05-31", Name: "Old", Calories: 10}
	repo.On("FindByID", mock.Anything, userID, entryID).Return(existing, nil)
	repo.On("Update", mock.Anything, userID, entryID, mock.MatchedBy(func(fields map[string]interface{}) bool {
		return fields["name"] == "Apple" && fields["calories"] == 95 &&
			fields["occurred_on"] == model.Day("2024-06-01")
	})).Return(int64(1), nil)

	input := validInput()
	input.ID = entryID.String()
	res := svc.Update(context.Background(), userID, input)

	assert.Equal(t, MutationOK, res.Status)
	repo.AssertExpectations(t)
}

func TestEntryService_Delete(t *testing.T) {
	t.Run("removes own row", func(t *testing.T) {
		repo := new(MockEntryRepository)
		svc := NewEntryService(repo, nil, 2000)
		userID := uuid.New()
		entryID := uuid.New()

		existing := &model.Entry{ID: entryID, UserID: userID, OccurredOn: "2024-06-01"}
		repo.On("FindByID", mock.Anything, userID, entryID).Return(existing, nil)
		repo.On("Delete", mock.Anything, userID, entryID).Return(int64(1), nil)

		res := svc.Delete(context.Background(), userID, entryID.String())

		assert.Equal(t, MutationOK, res.Status)
		repo.AssertExpectations(t)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		repo := new(MockEntryRepository)
		svc := NewEntryService(repo, nil, 2000)
		userID := uuid.New()

		repo.On("FindByID", mock.Anything, userID, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

		res := svc.Delete(context.Background(), userID, uuid.New().String())

		assert.Equal(t, MutationOK, res.Status)
		repo.AssertNotCalled(t, "Delete")
	})

	t.Run("missing id is invalid", func(t *testing.T) {
		repo := new(MockEntryRepository)
		svc := NewEntryService(repo, nil, 2000)

		res := svc.Delete(context.Background(), uuid.New(), "")

		assert.Equal(t, MutationInvalid, res.Status)
	})
}

func TestEntryService_DaySummary(t *testing.T) {
	repo := new(MockEntryRepository)
	svc := NewEntryService(repo, nil, 2000)
	userID := uuid.New()

	entries := []model.Entry{
		{Name: "Oatmeal", Calories: 310, OccurredOn: "2024-06-01"},
		{Name: "Salad", Calories: 420, OccurredOn: "2024-06-01"},
	}
	repo.On("ListByDay", mock.Anything, userID, model.Day("2024-06-01")).Return(entries, nil)

	summary, err := svc.DaySummary(context.Background(), userID, "2024-06-01")

	assert.NoError(t, err)
	assert.Equal(t, 730, summary.TotalCalories)
	assert.Equal(t, 2000, summary.Goal)
	assert.Equal(t, 1270, summary.Remaining)
	assert.Len(t, summary.Entries, 2)
}

func TestEntryService_DaySummaryRejectsMalformedDate(t *testing.T) {
	repo := new(MockEntryRepository)
	svc := NewEntryService(repo, nil, 2000)
	userID := uuid.New()

	for _, day := range []string{"garbage", "2024-13-40", "01/06/2024", "2024-6-1"} {
		summary, err := svc.DaySummary(context.Background(), userID, day)
		assert.ErrorIs(t, err, apperrors.ErrInvalidDate, "day %q", day)
		assert.Nil(t, summary)
	}
	repo.AssertNotCalled(t, "ListByDay", mock.Anything, mock.Anything, mock.Anything)
}

// memEntryRepo is an in-memory EntryRepository used to exercise whole
// create/update/read flows, including the owner scoping that mocks cannot
// meaningfully express.
type memEntryRepo struct {
	entries []*model.Entry
}

var _ repository.EntryRepository = (*memEntryRepo)(nil)

func (r *memEntryRepo) Create(ctx context.Context, entry *model.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	stored := *entry
	r.entries = append(r.entries, &stored)
	return nil
}

func (r *memEntryRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error) {
	for _, e := range r.entries {
		if e.ID == id && e.UserID == userID {
			found := *e
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memEntryRepo) Update(ctx context.Context, userID, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	for _, e := range r.entries {
		if e.ID == id && e.UserID == userID {
			e.OccurredOn = fields["occurred_on"].(model.Day)
			e.Name = fields["name"].(string)
			e.Calories = fields["calories"].(int)
			e.Barcode, _ = fields["barcode"].(*string)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *memEntryRepo) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	for i, e := range r.entries {
		if e.ID == id && e.UserID == userID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *memEntryRepo) ListByDay(ctx context.Context, userID uuid.UUID, day model.Day) ([]model.Entry, error) {
	var out []model.Entry
	for _, e := range r.entries {
		if e.UserID == userID && e.OccurredOn == day {
			out = append(out, *e)
		}
	}
	return out, nil
}

func TestEntryService_UpdateMovesEntryBetweenDays(t *testing.T) {
	repo := &memEntryRepo{}
	svc := NewEntryService(repo, nil, 2000)
	userID := uuid.New()

	first := svc.Create(context.Background(), userID, EntryInput{OccurredOn: "2024-06-01", Name: "Oatmeal", Calories: 310})
	second := svc.Create(context.Background(), userID, EntryInput{OccurredOn: "2024-06-01", Name: "Salad", Calories: 420})
	assert.True(t, first.OK())
	assert.True(t, second.OK())

	day1, _ := svc.DaySummary(context.Background(), userID, "2024-06-01")
	assert.Equal(t, 730, day1.TotalCalories)

	res := svc.Update(context.Background(), userID, EntryInput{
		ID:         second.Entry.ID.String(),
		OccurredOn: "2024-06-02",
		Name:       "Salad",
		Calories:   420,
	})
	assert.True(t, res.OK())

	day1, _ = svc.DaySummary(context.Background(), userID, "2024-06-01")
	day2, _ := svc.DaySummary(context.Background(), userID, "2024-06-02")
	assert.Equal(t, 310, day1.TotalCalories)
	assert.Equal(t, 420, day2.TotalCalories)
}

func TestEntryService_OtherUsersRowsAreInvisible(t *testing.T) {
	repo := &memEntryRepo{}
	svc := NewEntryService(repo, nil, 2000)
	owner := uuid.New()
	stranger := uuid.New()

	created := svc.Create(context.Background(), owner, validInput())
	assert.True(t, created.OK())
	id := created.Entry.ID.String()

	// A different authenticated user updating or deleting the row is a
	// no-op, not an error.
	upd := svc.Update(context.Background(), stranger, EntryInput{
		ID: id, OccurredOn: "2024-06-02", Name: "Hijacked", Calories: 1,
	})
	assert.True(t, upd.OK())

	del := svc.Delete(context.Background(), stranger, id)
	assert.True(t, del.OK())

	day, _ := svc.DaySummary(context.Background(), owner, "2024-06-01")
	assert.Equal(t, 95, day.TotalCalories)
	if assert.Len(t, day.Entries, 1) {
		assert.Equal(t, "Apple", day.Entries[0].Name)
	}
}
