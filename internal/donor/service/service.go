// Package service orchestrates donor registration, authentication, profile
// maintenance, and status transitions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"donaria/internal/donor/credentials"
	"donaria/internal/donor/metrics"
	"donaria/internal/donor/models"
	"donaria/internal/donor/store"
	"donaria/internal/donor/token"
	dErrors "donaria/pkg/domain-errors"
	"donaria/pkg/platform/sentinel"
)

// Store is the persistence dependency. Implementations enforce curp/email
// uniqueness atomically and stamp created_at/updated_at.
type Store interface {
	CreateIfAvailable(ctx context.Context, d *models.Donor) error
	Update(ctx context.Context, d *models.Donor) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Donor, error)
	FindByEmail(ctx context.Context, email string) (*models.Donor, error)
	FindByCURP(ctx context.Context, curp string) (*models.Donor, error)
}

// RevocationList tracks tokens invalidated before their natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, tokenString string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenString string) (bool, error)
}

// defaultDerivationSlots bounds concurrent PBKDF2 runs so the deliberately
// slow derivation cannot monopolize request-handling goroutines.
const defaultDerivationSlots = 4

// Service exposes donor identity operations.
type Service struct {
	donors      Store
	issuer      *token.Issuer
	revocations RevocationList
	logger      *slog.Logger
	metrics     *metrics.Metrics
	deriveSem   *semaphore.Weighted
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithRevocationList(list RevocationList) Option {
	return func(s *Service) {
		if list != nil {
			s.revocations = list
		}
	}
}

// WithDerivationSlots overrides the concurrency bound on secret derivation.
func WithDerivationSlots(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.deriveSem = semaphore.NewWeighted(n)
		}
	}
}

// New constructs a Service.
func New(donors Store, issuer *token.Issuer, revocations RevocationList, opts ...Option) *Service {
	s := &Service{
		donors:      donors,
		issuer:      issuer,
		revocations: revocations,
		logger:      slog.Default(),
		deriveSem:   semaphore.NewWeighted(defaultDerivationSlots),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register validates the raw registration form, establishes the donor's
// password secret, and persists the record. Structural validation is local
// and I/O-free; uniqueness of curp/email is the store's atomic
// check-and-insert.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.countFieldFailures(err)
		s.metrics.IncrementRegistration("validation_failed")
		return nil, err
	}

	d := &models.Donor{
		CURP:             req.CURP,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		DateOfBirth:      req.DateOfBirth,
		Gender:           req.Gender,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		PlaceOfResidence: req.PlaceOfResidence,
		ClaveHospital:    req.ClaveHospital,
		BloodType:        req.BloodType,
		CertifiedFile:    req.CertifiedFile,
		FormAnswers:      req.FormAnswers,
		Status:           models.Status(req.Status),
	}

	if err := s.deriveSecret(ctx, d, req.Password); err != nil {
		s.metrics.IncrementRegistration("error")
		return nil, err
	}

	if err := s.donors.CreateIfAvailable(ctx, d); err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			s.metrics.IncrementRegistration("conflict")
			return nil, dErrors.NewField(dErrors.CodeConflict, conflict.Field, models.MsgAlreadyInUse(conflict.Field))
		}
		s.metrics.IncrementRegistration("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donor")
	}

	signed, err := s.mint(d)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "donor registered",
		"donor_id", d.ID,
		"blood_type", d.BloodType,
	)
	s.metrics.IncrementRegistration("created")

	resp := d.AuthView(signed)
	return &resp, nil
}

// Authenticate verifies donor credentials and mints a fresh bearer token.
// Lookup misses and bad passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.metrics.IncrementLogin("validation_failed")
		return nil, err
	}

	d, err := s.donors.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementLogin("invalid_credentials")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		s.metrics.IncrementLogin("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up donor")
	}

	if !s.verifySecret(ctx, d, req.Password) {
		s.metrics.IncrementLogin("invalid_credentials")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	if !d.IsActive() {
		s.metrics.IncrementLogin("inactive")
		return nil, dErrors.New(dErrors.CodeForbidden, "donor account is not active")
	}

	signed, err := s.mint(d)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "donor authenticated", "donor_id", d.ID)
	s.metrics.IncrementLogin("success")

	resp := d.AuthView(signed)
	return &resp, nil
}

// GetPublicProfile returns the projection safe for anonymous callers.
func (s *Service) GetPublicProfile(ctx context.Context, id uuid.UUID) (*models.PublicView, error) {
	d, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	view := d.PublicView()
	return &view, nil
}

// GetProfile returns the full projection for the record owner or an
// administrative caller. It must never be served to anonymous callers; the
// transport layer gates it behind authentication.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*models.FullView, error) {
	d, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	view := d.FullView()
	return &view, nil
}

// UpdateProfile applies a partial update, re-validating each supplied field
// and re-checking uniqueness when curp or email change.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.FullView, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.countFieldFailures(err)
		return nil, err
	}

	d, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&d.CURP, req.CURP)
	applyString(&d.FirstName, req.FirstName)
	applyString(&d.LastName, req.LastName)
	applyString(&d.DateOfBirth, req.DateOfBirth)
	applyString(&d.Gender, req.Gender)
	applyString(&d.Email, req.Email)
	applyString(&d.PhoneNumber, req.PhoneNumber)
	applyString(&d.PlaceOfResidence, req.PlaceOfResidence)
	applyString(&d.ClaveHospital, req.ClaveHospital)
	applyString(&d.BloodType, req.BloodType)
	applyString(&d.CertifiedFile, req.CertifiedFile)
	if req.FormAnswers != nil {
		d.FormAnswers = req.FormAnswers
	}

	if err := s.donors.Update(ctx, d); err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			return nil, dErrors.NewField(dErrors.CodeConflict, conflict.Field, models.MsgAlreadyInUse(conflict.Field))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donor")
	}

	s.logger.InfoContext(ctx, "donor profile updated", "donor_id", d.ID)
	view := d.FullView()
	return &view, nil
}

// ChangeStatus moves the donor through the status state machine. Activo and
// inactivo are interchangeable, both may become eliminado, and eliminado is
// terminal.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, target models.Status) error {
	if !target.IsValid() {
		return dErrors.NewField(dErrors.CodeValidation, "status", "El campo status no es valido.")
	}

	d, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if !d.ChangeStatus(target, time.Now()) {
		return dErrors.New(dErrors.CodeInvariantViolation, "status transition not allowed")
	}

	if err := s.donors.Update(ctx, d); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donor status")
	}

	s.logger.InfoContext(ctx, "donor status changed",
		"donor_id", d.ID,
		"status", d.Status,
	)
	return nil
}

// ChangePassword rotates the donor's secret after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, req *models.ChangePasswordRequest) error {
	if req == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	d, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if !s.verifySecret(ctx, d, req.CurrentPassword) {
		return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
	}

	if err := s.deriveSecret(ctx, d, req.NewPassword); err != nil {
		return err
	}

	if err := s.donors.Update(ctx, d); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donor credentials")
	}

	s.logger.InfoContext(ctx, "donor password changed", "donor_id", d.ID)
	return nil
}

// Logout revokes the presented token for its remaining life.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.issuer.Validate(tokenString)
	if err != nil {
		return err
	}
	if s.revocations == nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revocations.Revoke(ctx, tokenString, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}

	s.logger.InfoContext(ctx, "donor token revoked", "donor_id", claims.DonorID)
	return nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Donor, error) {
	d, err := s.donors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
	}
	return d, nil
}

// deriveSecret runs the slow KDF under the derivation semaphore so hashing
// cannot starve the request path.
func (s *Service) deriveSecret(ctx context.Context, d *models.Donor, password string) error {
	if err := s.deriveSem.Acquire(ctx, 1); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "secret derivation cancelled")
	}
	defer s.deriveSem.Release(1)

	start := time.Now()
	err := credentials.SetSecret(d, password)
	s.metrics.ObserveSecretDerivation(time.Since(start))
	return err
}

func (s *Service) verifySecret(ctx context.Context, d *models.Donor, password string) bool {
	if err := s.deriveSem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer s.deriveSem.Release(1)

	start := time.Now()
	ok := credentials.VerifySecret(d, password)
	s.metrics.ObserveSecretDerivation(time.Since(start))
	return ok
}

func (s *Service) mint(d *models.Donor) (string, error) {
	signed, err := s.issuer.Mint(d)
	if err != nil {
		// Token minting failures are fatal for the request; never hand back
		// a malformed token.
		return "", err
	}
	s.metrics.IncrementTokenMinted()
	return signed, nil
}

func (s *Service) countFieldFailures(err error) {
	for _, v := range dErrors.Fields(err) {
		s.metrics.IncrementValidationFailure(v.Field)
	}
}
