package stub

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "railboard/internal/errors"
	"railboard/internal/model"
)

// ListParams are the decoded query parameters of GET /trains.
type ListParams struct {
	Search    string
	Status    string
	Type      string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// TrainRepository defines train persistence operations.
type TrainRepository interface {
	Create(ctx context.Context, train *TrainRecord) error
	FindByID(ctx context.Context, id string) (*TrainRecord, error)
	Save(ctx context.Context, train *TrainRecord) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]TrainRecord, int64, error)
}

type trainRepository struct {
	db *gorm.DB
}

// NewTrainRepository creates a new train repository.
func NewTrainRepository(db *gorm.DB) TrainRepository {
	return &trainRepository{db: db}
}

// Create inserts a new train.
func (r *trainRepository) Create(ctx context.Context, train *TrainRecord) error {
	return r.db.WithContext(ctx).Create(train).Error
}

// FindByID finds a train by id.
func (r *trainRepository) FindByID(ctx context.Context, id string) (*TrainRecord, error) {
	var train TrainRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&train).Error; err != nil {
		return nil, err
	}
	return &train, nil
}

// Save persists all attributes of an existing train.
func (r *trainRepository) Save(ctx context.Context, train *TrainRecord) error {
	return r.db.WithContext(ctx).Save(train).Error
}

// Delete removes a train by id.
func (r *trainRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&TrainRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns one page of trains plus the total match count before
// pagination. Filters are applied first, then the sort, then the page window.
// Equal sort keys are tie-broken by id so identical requests always return
// identical ordering.
func (r *trainRepository) List(ctx context.Context, params ListParams) ([]TrainRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&TrainRecord{})

	if params.Search != "" {
		needle := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where(
			"LOWER(train_number) LIKE ? OR LOWER(departure_station) LIKE ? OR LOWER(arrival_station) LIKE ?",
			needle, needle, needle,
		)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Type != "" {
		query = query.Where("type = ?", params.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = "departure_time"
	}
	if !model.Sortable(sortBy) {
		return nil, 0, fmt.Errorf("sort field %q: %w", sortBy, apperrors.ErrInvalidSortField)
	}
	direction := "ASC"
	if strings.EqualFold(params.SortOrder, "desc") {
		direction = "DESC"
	}

	var trains []TrainRecord
	err := query.
		Order(fmt.Sprintf("%s %s", sortBy, direction)).
		Order("id ASC").
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&trains).Error
	if err != nil {
		return nil, 0, err
	}
	return trains, total, nil
}

// UserRepository defines account persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *UserRecord) error
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*UserRecord, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new account.
func (r *userRepository) Create(ctx context.Context, user *UserRecord) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByUsername finds an account by username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	var user UserRecord
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsernameOrEmail finds an account matching either identifier.
func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*UserRecord, error) {
	var user UserRecord
	if err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
