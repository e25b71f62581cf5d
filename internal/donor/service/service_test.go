package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donaria/internal/donor/models"
	"donaria/internal/donor/revocation"
	"donaria/internal/donor/service"
	"donaria/internal/donor/store"
	"donaria/internal/donor/token"
	dErrors "donaria/pkg/domain-errors"
)

const testSigningKey = "test-signing-key"

func newService(t *testing.T) (*service.Service, *store.InMemory, *token.Issuer) {
	t.Helper()
	issuer, err := token.NewIssuer(testSigningKey)
	require.NoError(t, err)
	donors := store.NewInMemory()
	svc := service.New(donors, issuer, revocation.NewInMemory())
	return svc, donors, issuer
}

func registerRequest() *models.RegisterRequest {
	return &models.RegisterRequest{
		CURP:          "GOMC900101HDFLRN09",
		FirstName:     "Carmen",
		LastName:      "Gomez",
		DateOfBirth:   "1990-01-01",
		Gender:        "Femenino",
		Email:         "carmen@example.com",
		PhoneNumber:   "5512345678",
		BloodType:     "O+",
		CertifiedFile: "certs/carmen.pdf",
		FormAnswers:   map[string]any{"q1": "yes"},
		Status:        "activo",
		Password:      "hunter2hunter2",
	}
}

func mustRegister(t *testing.T, svc *service.Service) *models.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)
	return resp
}

func donorID(t *testing.T, issuer *token.Issuer, resp *models.AuthResponse) uuid.UUID {
	t.Helper()
	claims, err := issuer.Validate(resp.Token)
	require.NoError(t, err)
	id, err := uuid.Parse(claims.DonorID)
	require.NoError(t, err)
	return id
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()

	resp := mustRegister(t, svc)
	assert.Equal(t, "carmen@example.com", resp.Email)
	assert.NotEmpty(t, resp.Token)

	claims, err := issuer.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, token.RoleDonor, claims.Role)
	assert.Equal(t, "carmen@example.com", claims.Email)

	login, err := svc.Authenticate(ctx, &models.LoginRequest{
		Email:    "Carmen@Example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "carmen@example.com", login.Email)
	assert.NotEmpty(t, login.Token)
}

func TestRegisterNormalizesBeforePersisting(t *testing.T) {
	svc, donors, issuer := newService(t)
	ctx := context.Background()

	req := registerRequest()
	req.CURP = " gomc900101hdflrn09 "
	req.Email = " CARMEN@Example.com "
	req.BloodType = "o+"
	resp, err := svc.Register(ctx, req)
	require.NoError(t, err)

	d, err := donors.FindByID(ctx, donorID(t, issuer, resp))
	require.NoError(t, err)
	assert.Equal(t, "GOMC900101HDFLRN09", d.CURP)
	assert.Equal(t, "carmen@example.com", d.Email)
	assert.Equal(t, "O+", d.BloodType)
}

func TestRegisterValidationFailure(t *testing.T) {
	svc, _, _ := newService(t)

	req := registerRequest()
	req.Email = "not-an-email"
	req.BloodType = "C+"

	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Len(t, dErrors.Fields(err), 2)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	mustRegister(t, svc)

	req := registerRequest()
	req.CURP = "GOMD900101HDFLRN08"
	_, err := svc.Register(ctx, req)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	fields := dErrors.Fields(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "email", fields[0].Field)
	assert.Equal(t, "El campo email ya esta en uso.", fields[0].Message)
}

func TestRegisterDuplicateCURP(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	mustRegister(t, svc)

	req := registerRequest()
	req.Email = "other@example.com"
	_, err := svc.Register(ctx, req)
	require.Error(t, err)

	fields := dErrors.Fields(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "curp", fields[0].Field)
	assert.Equal(t, "El campo curp ya esta en uso.", fields[0].Message)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, _, _ := newService(t)
	mustRegister(t, svc)

	_, err := svc.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "carmen@example.com",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc, _, _ := newService(t)
	mustRegister(t, svc)

	// Same message as a wrong password so callers cannot probe which
	// emails are registered.
	_, err := svc.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "hunter2hunter2",
	})
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))
}

func TestAuthenticateInactiveDonor(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()
	resp := mustRegister(t, svc)
	id := donorID(t, issuer, resp)

	require.NoError(t, svc.ChangeStatus(ctx, id, models.StatusInactive))

	_, err := svc.Authenticate(ctx, &models.LoginRequest{
		Email:    "carmen@example.com",
		Password: "hunter2hunter2",
	})
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "donor account is not active"))
}

func TestGetPublicProfile(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()
	resp := mustRegister(t, svc)

	view, err := svc.GetPublicProfile(ctx, donorID(t, issuer, resp))
	require.NoError(t, err)
	assert.Equal(t, "Carmen", view.FirstName)
	assert.Equal(t, "O+", view.BloodType)

	_, err = svc.GetPublicProfile(ctx, uuid.New())
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeNotFound, "donor not found"))
}

func TestGetProfile(t *testing.T) {
	svc, _, issuer := newService(t)
	resp := mustRegister(t, svc)

	view, err := svc.GetProfile(context.Background(), donorID(t, issuer, resp))
	require.NoError(t, err)
	assert.Equal(t, "GOMC900101HDFLRN09", view.CURP)
	assert.Equal(t, "5512345678", view.PhoneNumber)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()
	resp := mustRegister(t, svc)
	id := donorID(t, issuer, resp)

	place := "Guadalajara"
	email := " NEW@Example.com "
	view, err := svc.UpdateProfile(ctx, id, &models.UpdateRequest{
		PlaceOfResidence: &place,
		Email:            &email,
	})
	require.NoError(t, err)
	assert.Equal(t, "Guadalajara", view.PlaceOfResidence)
	assert.Equal(t, "new@example.com", view.Email)
	assert.Equal(t, "Carmen", view.FirstName, "untouched fields survive")
}

func TestUpdateProfileRejectsInvalidField(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()
	resp := mustRegister(t, svc)

	bad := "not-a-curp"
	_, err := svc.UpdateProfile(ctx, donorID(t, issuer, resp), &models.UpdateRequest{CURP: &bad})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestUpdateProfileConflict(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()
	mustRegister(t, svc)

	second := registerRequest()
	second.CURP = "GOMD900101HDFLRN08"
	second.Email = "second@example.com"
	resp, err := svc.Register(ctx, second)
	require.NoError(t, err)

	taken := "carmen@example.com"
	_, err = svc.UpdateProfile(ctx, donorID(t, issuer, resp), &models.UpdateRequest{Email: &taken})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestChangeStatus(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()
	resp := mustRegister(t, svc)
	id := donorID(t, issuer, resp)

	require.NoError(t, svc.ChangeStatus(ctx, id, models.StatusInactive))
	require.NoError(t, svc.ChangeStatus(ctx, id, models.StatusActive))
	require.NoError(t, svc.ChangeStatus(ctx, id, models.StatusDeleted))

	err := svc.ChangeStatus(ctx, id, models.StatusActive)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvariantViolation, "status transition not allowed"))

	err = svc.ChangeStatus(ctx, id, models.Status("banned"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestChangePassword(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()
	resp := mustRegister(t, svc)
	id := donorID(t, issuer, resp)

	err := svc.ChangePassword(ctx, id, &models.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "fresh-password",
	})
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect"))

	require.NoError(t, svc.ChangePassword(ctx, id, &models.ChangePasswordRequest{
		CurrentPassword: "hunter2hunter2",
		NewPassword:     "fresh-password",
	}))

	_, err = svc.Authenticate(ctx, &models.LoginRequest{Email: "carmen@example.com", Password: "hunter2hunter2"})
	require.Error(t, err)

	_, err = svc.Authenticate(ctx, &models.LoginRequest{Email: "carmen@example.com", Password: "fresh-password"})
	require.NoError(t, err)
}

func TestLogoutRevokesToken(t *testing.T) {
	issuer, err := token.NewIssuer(testSigningKey)
	require.NoError(t, err)
	revocations := revocation.NewInMemory()
	svc := service.New(store.NewInMemory(), issuer, revocations)
	ctx := context.Background()

	resp := mustRegister(t, svc)
	require.NoError(t, svc.Logout(ctx, resp.Token))

	revoked, err := revocations.IsRevoked(ctx, resp.Token)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogoutRejectsGarbageToken(t *testing.T) {
	svc, _, _ := newService(t)

	err := svc.Logout(context.Background(), "not.a.token")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}
