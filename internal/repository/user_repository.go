package repository

import (
	"context"
	"errors"

	"market/internal/domain/model"
)

var ErrDuplicateUser = errors.New("username or email already exists")

type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Update(ctx context.Context, u model.User) error
}
