package auth

import (
	"context"
	"drawit/domain"
	"time"
)

type UserRepo interface {
	CreateUser(ctx context.Context, name, email, passwordHash, avatarColor string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserById(ctx context.Context, id string) (domain.User, error)
	TouchUser(ctx context.Context, id string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

type TokenManager interface {
	Generate(id string, now time.Time) (string, error)
	Verify(token string) (string, error)
}
