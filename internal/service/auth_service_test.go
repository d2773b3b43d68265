package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

func TestAuthenticateRoundTrip(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "schoolsnap"}, nil)
	token, _, err := svc.IssueToken(42, models.RoleEducator, "Ibu Sari", time.Hour)
	require.NoError(t, err)

	p, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, models.RoleEducator, p.Role)
	assert.Equal(t, token, p.Token)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"}, nil)

	expired, _, err := svc.IssueToken(1, models.RoleAdmin, "", -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	other := NewAuthService(AuthConfig{Secret: "other"}, nil)
	forged, _, err := other.IssueToken(1, models.RoleAdmin, "", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{UserID: 5})
	raw, err := noRole.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(raw)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
