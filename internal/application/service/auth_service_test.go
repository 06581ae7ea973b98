package service

import (
	"context"
	"testing"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/clinicpos/diagnostics-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*AuthService, *memStore, *utils.JWTManager) {
	t.Helper()
	store := newMemStore()
	for i, name := range []string{entity.RoleAdmin, entity.RoleCashier, entity.RoleLab} {
		store.roles[name] = entity.Role{ID: uint(i + 1), Name: name}
	}
	jwt := utils.NewJWTManager("test-secret", 15*time.Minute)
	return NewAuthService(memUsers{store}, memRoles{store}, jwt), store, jwt
}

func TestAuthService_CreateStaffAndLogin(t *testing.T) {
	auth, _, jwt := newAuthFixture(t)
	ctx := context.Background()

	user, err := auth.CreateStaff(ctx, &CreateStaffInput{
		FirstName: "Liza",
		LastName:  "Gomez",
		Email:     " Liza@Clinic.PH ",
		Password:  "s3cret-pass",
		Roles:     []string{entity.RoleCashier},
	})
	require.NoError(t, err)
	assert.Equal(t, "liza@clinic.ph", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.Password)

	out, err := auth.Login(ctx, &LoginInput{Email: "LIZA@clinic.ph", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, int64(900), out.ExpiresIn)

	claims, err := jwt.ValidateAccessToken(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, []string{entity.RoleCashier}, claims.Roles)

	profile, err := auth.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Liza Gomez", profile.FullName())
}

func TestAuthService_LoginFailures(t *testing.T) {
	auth, store, _ := newAuthFixture(t)
	ctx := context.Background()

	user, err := auth.CreateStaff(ctx, &CreateStaffInput{FirstName: "A", LastName: "B", Email: "ab@clinic.ph", Password: "right"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, &LoginInput{Email: "ab@clinic.ph", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = auth.Login(ctx, &LoginInput{Email: "nobody@clinic.ph", Password: "right"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	inactive := store.users[user.ID]
	inactive.IsActive = false
	store.users[user.ID] = inactive
	_, err = auth.Login(ctx, &LoginInput{Email: "ab@clinic.ph", Password: "right"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_CreateStaffRejections(t *testing.T) {
	auth, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.CreateStaff(ctx, &CreateStaffInput{Email: "x@clinic.ph", Password: "p", Roles: []string{"janitor"}})
	assert.True(t, apperror.HasReason(err, apperror.ReasonValidationFailed))

	_, err = auth.CreateStaff(ctx, &CreateStaffInput{Email: "x@clinic.ph", Password: "p"})
	require.NoError(t, err)
	_, err = auth.CreateStaff(ctx, &CreateStaffInput{Email: "x@clinic.ph", Password: "p"})
	assert.True(t, apperror.HasReason(err, apperror.ReasonConflict))
}
