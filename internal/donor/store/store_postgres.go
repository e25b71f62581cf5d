package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"donaria/internal/donor/models"
	"donaria/pkg/platform/sentinel"
)

// Postgres persists donors in PostgreSQL. Uniqueness of curp and email rides
// on the table's unique constraints, so concurrent registrations race safely:
// the database admits exactly one insert per curp/email.
type Postgres struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithPostgresClock sets the timestamp clock for testability.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(s *Postgres) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed donor store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	s := &Postgres{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

const donorColumns = `
	id, curp, first_name, last_name, date_of_birth, gender, email,
	phone_number, place_of_residence, clave_hospital, blood_type,
	certified_file, form_answers, status, secret_hash, secret_salt,
	created_at, updated_at
`

func (s *Postgres) CreateIfAvailable(ctx context.Context, d *models.Donor) error {
	answers, err := json.Marshal(d.FormAnswers)
	if err != nil {
		return fmt.Errorf("encode form answers: %w", err)
	}

	now := s.clock()
	id := uuid.New()
	query := `
		INSERT INTO donors (` + donorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = s.db.ExecContext(ctx, query,
		id, d.CURP, d.FirstName, d.LastName, d.DateOfBirth, d.Gender, d.Email,
		d.PhoneNumber, d.PlaceOfResidence, d.ClaveHospital, d.BloodType,
		d.CertifiedFile, answers, string(d.Status), d.SecretHash, d.SecretSalt,
		now, now,
	)
	if err != nil {
		if conflict := conflictField(err); conflict != "" {
			return &ConflictError{Field: conflict}
		}
		return fmt.Errorf("create donor: %w", err)
	}

	d.ID = id
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

func (s *Postgres) Update(ctx context.Context, d *models.Donor) error {
	answers, err := json.Marshal(d.FormAnswers)
	if err != nil {
		return fmt.Errorf("encode form answers: %w", err)
	}

	now := s.clock()
	query := `
		UPDATE donors SET
			curp = $2, first_name = $3, last_name = $4, date_of_birth = $5,
			gender = $6, email = $7, phone_number = $8, place_of_residence = $9,
			clave_hospital = $10, blood_type = $11, certified_file = $12,
			form_answers = $13, status = $14, secret_hash = $15,
			secret_salt = $16, updated_at = $17
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		d.ID, d.CURP, d.FirstName, d.LastName, d.DateOfBirth, d.Gender,
		d.Email, d.PhoneNumber, d.PlaceOfResidence, d.ClaveHospital,
		d.BloodType, d.CertifiedFile, answers, string(d.Status),
		d.SecretHash, d.SecretSalt, now,
	)
	if err != nil {
		if conflict := conflictField(err); conflict != "" {
			return &ConflictError{Field: conflict}
		}
		return fmt.Errorf("update donor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}

	d.UpdatedAt = now
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Donor, error) {
	return s.findBy(ctx, "id = $1", id)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Donor, error) {
	return s.findBy(ctx, "email = $1", email)
}

func (s *Postgres) FindByCURP(ctx context.Context, curp string) (*models.Donor, error) {
	return s.findBy(ctx, "curp = $1", curp)
}

func (s *Postgres) findBy(ctx context.Context, where string, arg any) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE ` + where
	row := s.db.QueryRowContext(ctx, query, arg)

	var (
		d       models.Donor
		answers []byte
		status  string
	)
	err := row.Scan(
		&d.ID, &d.CURP, &d.FirstName, &d.LastName, &d.DateOfBirth, &d.Gender,
		&d.Email, &d.PhoneNumber, &d.PlaceOfResidence, &d.ClaveHospital,
		&d.BloodType, &d.CertifiedFile, &answers, &status, &d.SecretHash,
		&d.SecretSalt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor: %w", err)
	}

	d.Status = models.Status(status)
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &d.FormAnswers); err != nil {
			return nil, fmt.Errorf("decode form answers: %w", err)
		}
	}
	return &d, nil
}

// conflictField maps a unique_violation to the donor field whose constraint
// tripped, or "" when err is not a uniqueness conflict.
func conflictField(err error) string {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return ""
	}
	switch {
	case strings.Contains(pqErr.Constraint, "curp"):
		return "curp"
	case strings.Contains(pqErr.Constraint, "email"):
		return "email"
	default:
		return ""
	}
}
