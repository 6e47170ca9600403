package auth_test

import (
	"bytes"
	"context"
	"drawit/auth"
	"drawit/domain"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func errorBody(msg string) string {
	return `{"success":false,"error":"` + msg + `"}`
}

func TestSignupHandler(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	exErr := errors.New("example error")
	ada := domain.User{Id: "u-1", Name: "Ada", Email: "ada@example.com", PasswordHash: "secret-hash", AvatarColor: "#3b82f6"}

	testCases := []struct {
		description   string
		body          string
		setupMocks    func(m *MockAuthService)
		expectedCode  int
		expectedBody  string
		expectedToken string
	}{
		{
			description: "normal success",
			body:        `{"name":"Ada","email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "Ada", "ada@example.com", "pass1234").Return(ada, "tokenhaha", nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"success":true,"token":"tokenhaha","user":{"id":"u-1","name":"Ada","email":"ada@example.com",
				"avatarColor":"#3b82f6","stats":{"roomsCreated":0,"roomsJoined":0},"createdAt":"0001-01-01T00:00:00Z"}}`,
			expectedToken: "tokenhaha",
		},
		{
			description: "email already registered",
			body:        `{"name":"Ada","email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "Ada", "ada@example.com", "pass1234").Return(domain.User{}, "", domain.ErrDuplicateEmail)
			},
			expectedCode: http.StatusConflict,
			expectedBody: errorBody(auth.ErrEmailAlreadyExistsStr),
		},
		{
			description: "weak password",
			body:        `{"name":"Ada","email":"ada@example.com","password":"123"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "Ada", "ada@example.com", "123").Return(domain.User{}, "", auth.ErrWeakPassword)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(auth.ErrWeakPasswordStr),
		},
		{
			description: "invalid name",
			body:        `{"name":"A","email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "A", "ada@example.com", "pass1234").Return(domain.User{}, "", auth.ErrInvalidName)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(auth.ErrInvalidNameStr),
		},
		{
			description:  "non json request",
			body:         `{`,
			setupMocks:   func(m *MockAuthService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(auth.ErrInvalidRequestFormatStr),
		},
		{
			description: "database failure",
			body:        `{"name":"Ada","email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "Ada", "ada@example.com", "pass1234").
					Return(domain.User{}, "", errors.Join(domain.UnexpectedDatabaseError, exErr))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(auth.ErrUnknownStr),
		},
		{
			description: "token generation failure",
			body:        `{"name":"Ada","email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "Ada", "ada@example.com", "pass1234").
					Return(ada, "", errors.Join(domain.UnexpectedTokenGenerationError, exErr))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(auth.ErrAccountCreatedButNoToken),
		},
		{
			description: "timeout error",
			body:        `{"name":"Ada","email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "Ada", "ada@example.com", "pass1234").Return(domain.User{}, "", context.DeadlineExceeded)
			},
			expectedCode: http.StatusGatewayTimeout,
			expectedBody: errorBody(auth.ErrServerTimeoutStr),
		},
		{
			description: "client closed request",
			body:        `{"name":"Ada","email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "Ada", "ada@example.com", "pass1234").Return(domain.User{}, "", context.Canceled)
			},
			expectedCode: 499,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()
			mockService := new(MockAuthService)
			tc.setupMocks(mockService)

			authHandler := auth.NewAuthHandler(mockService, 197*time.Second)
			server := gin.New()
			server.POST("/signup", authHandler.SignupHandler)

			req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			res := httptest.NewRecorder()
			server.ServeHTTP(res, req)

			token := ""
			if cookies := res.Result().Cookies(); len(cookies) > 0 {
				assert.Equal(t, "token", cookies[0].Name)
				assert.Equal(t, "/", cookies[0].Path)
				assert.Equal(t, 197, cookies[0].MaxAge)
				assert.True(t, cookies[0].HttpOnly)
				assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)
				token = cookies[0].Value
			}

			assert.Equal(t, tc.expectedCode, res.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, res.Body.String())
			}
			assert.NotContains(t, res.Body.String(), "secret-hash")
			assert.Equal(t, tc.expectedToken, token)
			mockService.AssertExpectations(t)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	ada := domain.User{Id: "u-1", Name: "Ada"}

	testCases := []struct {
		description   string
		body          string
		setupMocks    func(m *MockAuthService)
		expectedCode  int
		expectedBody  string
		expectedToken string
	}{
		{
			description: "successful login",
			body:        `{"email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Login", mock.Anything, "ada@example.com", "pass1234").Return(ada, "loginToken123", nil)
			},
			expectedCode:  http.StatusOK,
			expectedToken: "loginToken123",
		},
		{
			description: "user not found",
			body:        `{"email":"ghost@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Login", mock.Anything, "ghost@example.com", "pass1234").Return(domain.User{}, "", domain.ErrUserNotFound)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: errorBody(auth.ErrInvalidCredentialsStr),
		},
		{
			description: "incorrect password",
			body:        `{"email":"ada@example.com","password":"wrong"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Login", mock.Anything, "ada@example.com", "wrong").Return(domain.User{}, "", auth.ErrIncorrectPassword)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: errorBody(auth.ErrInvalidCredentialsStr),
		},
		{
			description: "missing password",
			body:        `{"email":"ada@example.com"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Login", mock.Anything, "ada@example.com", "").Return(domain.User{}, "", auth.ErrMissingPassword)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(auth.ErrMissingPasswordStr),
		},
		{
			description:  "non json request",
			body:         `{`,
			setupMocks:   func(m *MockAuthService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(auth.ErrInvalidRequestFormatStr),
		},
		{
			description: "hash comparison failure",
			body:        `{"email":"ada@example.com","password":"pass1234"}`,
			setupMocks: func(m *MockAuthService) {
				m.On("Login", mock.Anything, "ada@example.com", "pass1234").Return(domain.User{}, "", domain.UnexpectedPasswordHashComparisonError)
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(auth.ErrUnknownStr),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()
			mockService := new(MockAuthService)
			tc.setupMocks(mockService)

			authHandler := auth.NewAuthHandler(mockService, time.Hour)
			server := gin.New()
			server.POST("/login", authHandler.LoginHandler)

			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			res := httptest.NewRecorder()
			server.ServeHTTP(res, req)

			token := ""
			if cookies := res.Result().Cookies(); len(cookies) > 0 {
				token = cookies[0].Value
			}
			assert.Equal(t, tc.expectedCode, res.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, res.Body.String())
			}
			assert.Equal(t, tc.expectedToken, token)
			mockService.AssertExpectations(t)
		})
	}
}

func TestRequireAuthMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		description  string
		header       string
		cookie       string
		setupMocks   func(m *MockAuthService)
		expectedCode int
		expectedBody string
	}{
		{
			description:  "no token",
			setupMocks:   func(m *MockAuthService) {},
			expectedCode: http.StatusUnauthorized,
			expectedBody: errorBody(auth.ErrMissingTokenStr),
		},
		{
			description: "bearer token",
			header:      "Bearer good",
			setupMocks: func(m *MockAuthService) {
				m.On("VerifyToken", "good").Return("u-1", nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"id":"u-1"}`,
		},
		{
			description: "cookie token",
			cookie:      "good",
			setupMocks: func(m *MockAuthService) {
				m.On("VerifyToken", "good").Return("u-2", nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"id":"u-2"}`,
		},
		{
			description: "expired token",
			cookie:      "old",
			setupMocks: func(m *MockAuthService) {
				m.On("VerifyToken", "old").Return("", domain.ErrExpiredToken)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: errorBody(auth.ErrExpiredTokenStr),
		},
		{
			description: "tampered token",
			cookie:      "forged",
			setupMocks: func(m *MockAuthService) {
				m.On("VerifyToken", "forged").Return("", domain.ErrInvalidTokenSignature)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: errorBody(auth.ErrInvalidTokenStr),
		},
		{
			description: "verification failure",
			cookie:      "weird",
			setupMocks: func(m *MockAuthService) {
				m.On("VerifyToken", "weird").Return("", domain.UnexpectedTokenVerificationError)
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(auth.ErrUnknownStr),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()
			mockService := new(MockAuthService)
			tc.setupMocks(mockService)

			authHandler := auth.NewAuthHandler(mockService, time.Hour)
			server := gin.New()
			server.GET("/private", authHandler.RequireAuthMiddleware(time.Millisecond), func(ctx *gin.Context) {
				ctx.JSON(http.StatusOK, gin.H{"id": ctx.GetString("id")})
			})

			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tc.cookie})
			}
			res := httptest.NewRecorder()
			server.ServeHTTP(res, req)

			assert.Equal(t, tc.expectedCode, res.Code)
			assert.JSONEq(t, tc.expectedBody, res.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}

func TestMeHandler(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		description  string
		setupMocks   func(m *MockAuthService)
		expectedCode int
		expectedBody string
	}{
		{
			description: "known user",
			setupMocks: func(m *MockAuthService) {
				m.On("CurrentUser", mock.Anything, "u-1").Return(domain.User{Id: "u-1", Name: "Ada", Stats: domain.UserStats{RoomsCreated: 2}}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"user":{"id":"u-1","name":"Ada","email":"","avatarColor":"",
				"stats":{"roomsCreated":2,"roomsJoined":0},"createdAt":"0001-01-01T00:00:00Z"}}`,
		},
		{
			description: "deleted user",
			setupMocks: func(m *MockAuthService) {
				m.On("CurrentUser", mock.Anything, "u-1").Return(domain.User{}, domain.ErrUserNotFound)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: errorBody(auth.ErrUserNotFoundStr),
		},
		{
			description: "database failure",
			setupMocks: func(m *MockAuthService) {
				m.On("CurrentUser", mock.Anything, "u-1").Return(domain.User{}, domain.UnexpectedDatabaseError)
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(auth.ErrUnknownStr),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()
			mockService := new(MockAuthService)
			tc.setupMocks(mockService)

			authHandler := auth.NewAuthHandler(mockService, time.Hour)
			server := gin.New()
			server.GET("/me", func(ctx *gin.Context) { ctx.Set("id", "u-1") }, authHandler.MeHandler)

			res := httptest.NewRecorder()
			server.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/me", nil))

			assert.Equal(t, tc.expectedCode, res.Code)
			assert.JSONEq(t, tc.expectedBody, res.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}

func TestRefreshAndLogout(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	mockService := new(MockAuthService)
	mockService.On("GenerateToken", "u-1").Return("fresh", nil)

	authHandler := auth.NewAuthHandler(mockService, time.Hour)
	server := gin.New()
	server.POST("/refresh", func(ctx *gin.Context) { ctx.Set("id", "u-1") }, authHandler.RefreshSessionHandler)
	server.POST("/logout", authHandler.LogoutHandler)
	server.POST("/offline", auth.UnavailableHandler)

	res := httptest.NewRecorder()
	server.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "fresh", res.Result().Cookies()[0].Value)

	res = httptest.NewRecorder()
	server.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	cookie := res.Result().Cookies()[0]
	assert.Equal(t, "token", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)

	res = httptest.NewRecorder()
	server.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/offline", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.JSONEq(t, errorBody(auth.ErrDatabaseUnavailableStr), res.Body.String())

	mockService.AssertExpectations(t)
}
