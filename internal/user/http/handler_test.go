package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/user"
)

const userID = "22222222-2222-2222-2222-222222222222"

// stubService knows one account, which can be switched off.
type stubService struct {
	user.Service

	inactive bool
}

func (s *stubService) account() *user.User {
	return &user.User{ID: userID, Email: "pat@example.com", Role: auth.RoleGroomerStaff, IsActive: !s.inactive, CreatedAt: time.Now()}
}

func (s *stubService) Login(_ context.Context, email, password string) (*user.User, error) {
	if email != "pat@example.com" || password != "password123" {
		return nil, user.ErrInvalidCredentials
	}
	return s.account(), nil
}

func (s *stubService) Reauthenticate(_ context.Context, id string) (*user.User, error) {
	if id != userID || s.inactive {
		return nil, user.ErrSessionInvalid
	}
	return s.account(), nil
}

func setup(t *testing.T, svc user.Service) (*gin.Engine, *auth.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt := auth.NewJWTManager("test-secret", time.Minute, auth.WithRefreshTTL(time.Hour))
	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc, jwt), auth.AuthRequired(jwt))
	return r, jwt
}

func post(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine) LoginResponse {
	t.Helper()
	w := post(t, r, "/v1/auth/login", LoginRequest{Email: "pat@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLoginReturnsTokenPair(t *testing.T) {
	r, jwt := setup(t, &stubService{})
	resp := login(t, r)

	access, err := jwt.ParseAndValidate(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, access.UserID)

	refresh, err := jwt.ParseRefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleGroomerStaff, refresh.Role)
	assert.Equal(t, userID, resp.User.ID)
}

func TestRefresh(t *testing.T) {
	svc := &stubService{}
	r, jwt := setup(t, svc)
	first := login(t, r)

	w := post(t, r, "/v1/auth/refresh", RefreshRequest{RefreshToken: first.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var next LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	_, err := jwt.ParseAndValidate(next.AccessToken)
	assert.NoError(t, err)
	_, err = jwt.ParseRefreshToken(next.RefreshToken)
	assert.NoError(t, err)

	// An access token cannot be used to refresh.
	w = post(t, r, "/v1/auth/refresh", RefreshRequest{RefreshToken: first.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(t, r, "/v1/auth/refresh", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.inactive = true
	w = post(t, r, "/v1/auth/refresh", RefreshRequest{RefreshToken: first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshTokenIsNotABearer(t *testing.T) {
	r, _ := setup(t, &stubService{})
	resp := login(t, r)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.RefreshToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
