package users

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/kbukum/usersvc/database"
	"github.com/kbukum/usersvc/database/query"
	apperrors "github.com/kbukum/usersvc/errors"
)

const resource = "user"

// ListConfig drives GET /users query parsing.
var ListConfig = query.Config{
	SearchFields:      []string{"email", "first_name", "last_name"},
	AllowedSortFields: []string{"id", "email", "created_at"},
	AllowedFilters:    []string{"is_active", "is_superuser"},
	DefaultSort:       "id",
}

// Store persists users through GORM.
type Store struct {
	db *gorm.DB
}

// NewStore binds a store to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the user with id.
func (s *Store) Get(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, apperrors.NotFound(resource, strconv.FormatUint(uint64(id), 10))
		}
		return nil, database.FromDatabase(err, resource)
	}
	return &u, nil
}

// GetByEmail returns the user with email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, database.FromDatabase(err, resource)
	}
	return &u, nil
}

// List returns one page of users and the unpaginated total.
func (s *Store) List(ctx context.Context, params query.Params) (*query.Result[User], error) {
	res, err := query.Apply[User](s.db.WithContext(ctx), params, ListConfig)
	if err != nil {
		return nil, database.FromDatabase(err, resource)
	}
	return res, nil
}

// Create inserts u and fills in its ID and timestamps.
func (s *Store) Create(ctx context.Context, u *User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return database.FromDatabase(err, resource)
	}
	return nil
}

// Update writes every column of u.
func (s *Store) Update(ctx context.Context, u *User) error {
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return database.FromDatabase(err, resource)
	}
	return nil
}

// Delete removes the user with id.
func (s *Store) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return database.FromDatabase(res.Error, resource)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(resource, strconv.FormatUint(uint64(id), 10))
	}
	return nil
}
