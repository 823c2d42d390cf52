package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "acquisitions/internal/errors"
	"acquisitions/internal/model"
)

// UserChanges is a partial update. Nil fields are left untouched; id and
// created_at cannot be expressed.
type UserChanges struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *model.Role
}

// ListParams selects one page of users.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// Offset is the number of rows skipped before the page starts.
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id uint, changes UserChanges) (*model.User, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, params ListParams) ([]model.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
	// now stamps updated_at; swapped in tests.
	now func() time.Time
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, now: time.Now}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return findByID(r.db.WithContext(ctx), id)
}

// FindByEmail returns (nil, nil) when no row matches.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, id uint, changes UserChanges) (*model.User, error) {
	var updated *model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findByID(tx, id); err != nil {
			return err
		}

		res := tx.Model(&model.User{}).Where("id = ?", id).Updates(changes.columns(r.now()))
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return apperrors.ErrEmailExists
			}
			return fmt.Errorf("update user: %w", res.Error)
		}

		user, err := findByID(tx, id)
		if err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findByID(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(&model.User{}, id).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// List returns one page of users plus the number of rows matching the
// search filter. Search is a case-insensitive substring match on name or email.
func (r *userRepository) List(ctx context.Context, params ListParams) ([]model.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.User{})
	if params.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(params.Search)) + "%"
		query = query.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	sortBy := params.SortBy
	if _, ok := model.UserSortColumns[sortBy]; !ok {
		sortBy = model.DefaultUserSort
	}
	desc := params.SortOrder != "asc"

	var users []model.User
	err := query.Session(&gorm.Session{}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func findByID(db *gorm.DB, id uint) (*model.User, error) {
	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (c UserChanges) columns(now time.Time) map[string]interface{} {
	cols := map[string]interface{}{"updated_at": now}
	if c.Name != nil {
		cols["name"] = *c.Name
	}
	if c.Email != nil {
		cols["email"] = *c.Email
	}
	if c.PasswordHash != nil {
		cols["password"] = *c.PasswordHash
	}
	if c.Role != nil {
		cols["role"] = *c.Role
	}
	return cols
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
