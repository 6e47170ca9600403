package auth

import (
	"context"
	"drawit/domain"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	minNameLength     = 2
	maxNameLength     = 50
	minPasswordLength = 6
	maxPasswordLength = 128
)

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	avatarColors = []string{"#8b5cf6", "#06b6d4", "#22c55e", "#f97316", "#ec4899", "#3b82f6"}
)

type service struct {
	userRepo       UserRepo
	passwordHasher PasswordHasher
	tokenManager   TokenManager
	now            func() time.Time
}

func NewService(userRepo UserRepo, passwordHasher PasswordHasher, tokenManager TokenManager) *service {
	return &service{userRepo, passwordHasher, tokenManager, time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// avatarColor picks a palette entry from the first byte of the name.
func avatarColor(name string) string {
	return avatarColors[int(name[0])%len(avatarColors)]
}

func (s *service) Signup(ctx context.Context, name, email, password string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return domain.User{}, "", ErrInvalidName
	}
	if !emailPattern.MatchString(email) {
		return domain.User{}, "", ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return domain.User{}, "", ErrWeakPassword
	}
	if len(password) > maxPasswordLength {
		return domain.User{}, "", ErrPasswordTooLong
	}

	hash, err := s.passwordHasher.Hash(password)
	if err != nil {
		return domain.User{}, "", err
	}

	user, err := s.userRepo.CreateUser(ctx, name, email, hash, avatarColor(name))
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.tokenManager.Generate(user.Id, s.now())
	if err != nil {
		return user, "", err
	}
	return user, token, nil
}

func (s *service) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return domain.User{}, "", ErrInvalidEmail
	}
	if password == "" {
		return domain.User{}, "", ErrMissingPassword
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, "", err
	}

	match, err := s.passwordHasher.Compare(user.PasswordHash, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !match {
		return domain.User{}, "", ErrIncorrectPassword
	}

	if err := s.userRepo.TouchUser(ctx, user.Id); err != nil {
		log.Warn().Err(err).Str("user", user.Id).Msg("failed to update last activity")
	}

	token, err := s.tokenManager.Generate(user.Id, s.now())
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

func (s *service) CurrentUser(ctx context.Context, id string) (domain.User, error) {
	return s.userRepo.GetUserById(ctx, id)
}

// VerifyToken returns the user id if the token is valid.
func (s *service) VerifyToken(token string) (string, error) {
	return s.tokenManager.Verify(token)
}

func (s *service) GenerateToken(id string) (string, error) {
	return s.tokenManager.Generate(id, s.now())
}
