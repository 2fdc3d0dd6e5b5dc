package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/config"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

type fakeAuthUsers struct {
	user      *models.User
	lastLogin *time.Time
}

func (f *fakeAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.user, nil
}

func (f *fakeAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return f.user, nil
}

func (f *fakeAuthUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	f.lastLogin = &ts
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeAuthUsers) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	require.NoError(t, err)

	studentID := "std-1"
	users := &fakeAuthUsers{user: &models.User{
		ID:           "usr-1",
		Email:        "budi@example.com",
		PasswordHash: string(hash),
		FullName:     "Budi Santoso",
		Role:         models.RoleStudent,
		StudentID:    &studentID,
		Active:       true,
	}}

	cfg := config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "bimbel-api"}
	return NewAuthService(users, validator.New(), zap.NewNop(), cfg), users
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	svc, users := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "budi@example.com",
		Password: "rahasia123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, "usr-1", resp.User.ID)
	require.NotNil(t, users.lastLogin)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "usr-1", claims.UserID)
	require.Equal(t, models.RoleStudent, claims.Role)
	require.Equal(t, "std-1", claims.StudentID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "budi@example.com",
		Password: "salah",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, users := newAuthFixture(t)
	users.user.Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "budi@example.com",
		Password: "rahasia123",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
