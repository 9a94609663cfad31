package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTProviderAuthenticate(t *testing.T) {
	provider := NewJWTProvider(testSecret)
	dept := uint(4)

	token := signToken(t, Claims{
		UserID:       "hod-1",
		Role:         "HOD",
		DepartmentID: &dept,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	session, err := provider.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "hod-1", session.UserID)
	assert.Equal(t, models.RoleHOD, session.Role)
	assert.True(t, session.InDepartment(4))
}

func TestJWTProviderFallsBackToSubject(t *testing.T) {
	provider := NewJWTProvider(testSecret)
	token := signToken(t, Claims{
		Role:             "DEAN",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "dean-7"},
	}, testSecret)

	session, err := provider.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "dean-7", session.UserID)
	assert.Nil(t, session.DepartmentID)
}

func TestJWTProviderRejects(t *testing.T) {
	provider := NewJWTProvider(testSecret)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", signToken(t, Claims{UserID: "u", Role: "HOD"}, "other"), ErrInvalidToken},
		{"expired", signToken(t, Claims{UserID: "u", Role: "HOD", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}, testSecret), ErrInvalidToken},
		{"unknown role", signToken(t, Claims{UserID: "u", Role: "JANITOR"}, testSecret), ErrInvalidRole},
		{"no user", signToken(t, Claims{Role: "HOD"}, testSecret), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.Authenticate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCasdoorProviderMapsUserProperties(t *testing.T) {
	provider := &CasdoorProvider{parse: func(token string) (*casdoorsdk.Claims, error) {
		if token != "good" {
			return nil, errors.New("bad signature")
		}
		return &casdoorsdk.Claims{User: casdoorsdk.User{
			Id:         "c-42",
			Properties: map[string]string{"role": "teacher", "department_id": "3"},
		}}, nil
	}}

	session, err := provider.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "c-42", session.UserID)
	assert.Equal(t, models.RoleTeacher, session.Role)
	assert.True(t, session.InDepartment(3))

	_, err = provider.Authenticate(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCasdoorProviderAdminFallback(t *testing.T) {
	provider := &CasdoorProvider{parse: func(string) (*casdoorsdk.Claims, error) {
		return &casdoorsdk.Claims{User: casdoorsdk.User{Id: "root", IsAdmin: true}}, nil
	}}

	session, err := provider.Authenticate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, session.Role)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(Middleware(NewJWTProvider(testSecret), logger))
	router.GET("/me", func(c *gin.Context) {
		s, ok := SessionFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": s.UserID, "role": s.Role})
	})

	good := signToken(t, Claims{UserID: "t-1", Role: "TEACHER"}, testSecret)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid bearer", "Bearer " + good, http.StatusOK},
		{"lowercase scheme", "bearer " + good, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"t-1","role":"TEACHER"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}
