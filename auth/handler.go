package auth

import (
	"context"
	"drawit/domain"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	ErrMissingTokenStr          = "missing-token"
	ErrExpiredTokenStr          = "expired-token"
	ErrInvalidTokenStr          = "invalid-token"
	ErrServerTimeoutStr         = "server-timeout"
	ErrInvalidRequestFormatStr  = "bad-request-format"
	ErrInvalidCredentialsStr    = "invalid-credentials"
	ErrUnknownStr               = "unknown-error"
	ErrEmailAlreadyExistsStr    = "email-already-registered"
	ErrWeakPasswordStr          = "weak-password"
	ErrPasswordTooLongStr       = "password-too-long"
	ErrInvalidNameStr           = "invalid-name"
	ErrInvalidEmailStr          = "invalid-email"
	ErrMissingPasswordStr       = "missing-password"
	ErrUserNotFoundStr          = "user-not-found"
	ErrDatabaseUnavailableStr   = "database-unavailable"
	ErrAccountCreatedButNoToken = "account-created-but-no-token"

	tokenCookie = "token"
	userIdKey   = "id"
)

type AuthService interface {
	Signup(ctx context.Context, name, email, password string) (domain.User, string, error)
	Login(ctx context.Context, email, password string) (domain.User, string, error)
	CurrentUser(ctx context.Context, id string) (domain.User, error)
	VerifyToken(token string) (string, error)
	GenerateToken(id string) (string, error)
}

type authHandler struct {
	authService  AuthService
	cookieMaxAge time.Duration
}

func NewAuthHandler(service AuthService, cookieMaxAge time.Duration) *authHandler {
	return &authHandler{authService: service, cookieMaxAge: cookieMaxAge}
}

func fail(ctx *gin.Context, status int, msg string) {
	ctx.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// requestToken reads the Authorization bearer token first, then the cookie.
func requestToken(ctx *gin.Context) string {
	if token, ok := strings.CutPrefix(ctx.GetHeader("Authorization"), "Bearer "); ok {
		return token
	}
	token, _ := ctx.Cookie(tokenCookie)
	return token
}

func (ah *authHandler) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.SetCookie(tokenCookie, token, maxAge, "/", "", true, true)
}

// RequireAuthMiddleware stores the verified user id under "id". Tampered tokens are
// answered after tamperDelay.
func (ah *authHandler) RequireAuthMiddleware(tamperDelay time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := requestToken(ctx)
		if token == "" {
			fail(ctx, http.StatusUnauthorized, ErrMissingTokenStr)
			return
		}

		id, err := ah.authService.VerifyToken(token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidSigningAlg), errors.Is(err, domain.ErrInvalidTokenSignature), errors.Is(err, domain.ErrCorruptedToken):
				log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("rejected tampered token")
				time.Sleep(tamperDelay)
				fail(ctx, http.StatusUnauthorized, ErrInvalidTokenStr)
			case errors.Is(err, domain.ErrExpiredToken):
				fail(ctx, http.StatusUnauthorized, ErrExpiredTokenStr)
			default:
				log.Error().Err(err).Msg("token verification failed")
				fail(ctx, http.StatusInternalServerError, ErrUnknownStr)
			}
			return
		}

		ctx.Set(userIdKey, id)
		ctx.Next()
	}
}

// storeFailure maps the errors shared by every handler that reaches the store.
func storeFailure(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fail(ctx, http.StatusGatewayTimeout, ErrServerTimeoutStr)
	case errors.Is(err, context.Canceled):
		ctx.AbortWithStatus(499)
	default:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("unexpected auth failure")
		fail(ctx, http.StatusInternalServerError, ErrUnknownStr)
	}
}

func (ah *authHandler) SignupHandler(ctx *gin.Context) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		fail(ctx, http.StatusBadRequest, ErrInvalidRequestFormatStr)
		return
	}

	user, token, err := ah.authService.Signup(ctx.Request.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			fail(ctx, http.StatusConflict, ErrEmailAlreadyExistsStr)
		case errors.Is(err, ErrInvalidName):
			fail(ctx, http.StatusBadRequest, ErrInvalidNameStr)
		case errors.Is(err, ErrInvalidEmail):
			fail(ctx, http.StatusBadRequest, ErrInvalidEmailStr)
		case errors.Is(err, ErrWeakPassword):
			fail(ctx, http.StatusBadRequest, ErrWeakPasswordStr)
		case errors.Is(err, ErrPasswordTooLong):
			fail(ctx, http.StatusBadRequest, ErrPasswordTooLongStr)
		case errors.Is(err, domain.UnexpectedTokenGenerationError):
			log.Error().Err(err).Str("user", user.Id).Msg("account created without token")
			fail(ctx, http.StatusInternalServerError, ErrAccountCreatedButNoToken)
		default:
			storeFailure(ctx, err)
		}
		return
	}

	ah.setTokenCookie(ctx, token, int(ah.cookieMaxAge.Seconds()))
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "token": token, "user": user})
}

func (ah *authHandler) LoginHandler(ctx *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		fail(ctx, http.StatusBadRequest, ErrInvalidRequestFormatStr)
		return
	}

	user, token, err := ah.authService.Login(ctx.Request.Context(), body.Email, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrIncorrectPassword), errors.Is(err, domain.ErrUserNotFound):
			fail(ctx, http.StatusUnauthorized, ErrInvalidCredentialsStr)
		case errors.Is(err, ErrInvalidEmail):
			fail(ctx, http.StatusBadRequest, ErrInvalidEmailStr)
		case errors.Is(err, ErrMissingPassword):
			fail(ctx, http.StatusBadRequest, ErrMissingPasswordStr)
		default:
			storeFailure(ctx, err)
		}
		return
	}

	ah.setTokenCookie(ctx, token, int(ah.cookieMaxAge.Seconds()))
	ctx.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": user})
}

// MeHandler must run behind RequireAuthMiddleware.
func (ah *authHandler) MeHandler(ctx *gin.Context) {
	user, err := ah.authService.CurrentUser(ctx.Request.Context(), ctx.GetString(userIdKey))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			fail(ctx, http.StatusUnauthorized, ErrUserNotFoundStr)
			return
		}
		storeFailure(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// RefreshSessionHandler must run behind RequireAuthMiddleware.
func (ah *authHandler) RefreshSessionHandler(ctx *gin.Context) {
	token, err := ah.authService.GenerateToken(ctx.GetString(userIdKey))
	if err != nil {
		log.Error().Err(err).Msg("token refresh failed")
		fail(ctx, http.StatusInternalServerError, ErrUnknownStr)
		return
	}
	ah.setTokenCookie(ctx, token, int(ah.cookieMaxAge.Seconds()))
	ctx.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

func (ah *authHandler) LogoutHandler(ctx *gin.Context) {
	ah.setTokenCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "logged-out"})
}

// UnavailableHandler answers every auth route when no database is configured.
func UnavailableHandler(ctx *gin.Context) {
	fail(ctx, http.StatusServiceUnavailable, ErrDatabaseUnavailableStr)
}
