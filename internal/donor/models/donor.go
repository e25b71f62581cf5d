package models

import (
	"time"

	"github.com/google/uuid"
)

// GenderUnspecified is stored when the registrant leaves gender blank.
const GenderUnspecified = "Prefieron no decir."

// Donor is the aggregate root for a registered donor identity.
//
// Invariants:
//   - CURP and Email are unique across non-deleted records (enforced
//     atomically by the store)
//   - Status is always one of activo, inactivo, eliminado
//   - SecretHash and SecretSalt are both set or both empty, never one
//     without the other
//   - Records are never physically destroyed here; eliminado is a status,
//     not a removal
type Donor struct {
	ID               uuid.UUID      `json:"id"`
	CURP             string         `json:"curp"`
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	DateOfBirth      string         `json:"date_of_birth"`
	Gender           string         `json:"gender"`
	Email            string         `json:"email"`
	PhoneNumber      string         `json:"phone_number,omitempty"`
	PlaceOfResidence string         `json:"place_of_residence,omitempty"`
	ClaveHospital    string         `json:"clave_hospital,omitempty"`
	BloodType        string         `json:"blood_type"`
	CertifiedFile    string         `json:"certified_file"`
	FormAnswers      map[string]any `json:"form_answers"`
	Status           Status         `json:"status"`
	SecretHash       string         `json:"-"` // never serialize secret material
	SecretSalt       string         `json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (d *Donor) IsActive() bool {
	return d.Status == StatusActive
}

// HasSecret reports whether a password has been established for the donor.
func (d *Donor) HasSecret() bool {
	return d.SecretHash != "" && d.SecretSalt != ""
}

// ChangeStatus applies a status transition, rejecting moves the state
// machine does not permit.
func (d *Donor) ChangeStatus(target Status, now time.Time) bool {
	if !d.Status.CanTransitionTo(target) {
		return false
	}
	d.Status = target
	d.UpdatedAt = now
	return true
}

// PublicView is the projection safe for anonymous callers. It must never
// carry the CURP, date of birth, phone number, questionnaire answers,
// document references, timestamps, or secret material.
type PublicView struct {
	ID               uuid.UUID `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Gender           string    `json:"gender"`
	Email            string    `json:"email"`
	PlaceOfResidence string    `json:"place_of_residence"`
	ClaveHospital    string    `json:"clave_hospital"`
	BloodType        string    `json:"blood_type"`
	Status           Status    `json:"status"`
}

// FullView is the projection for the record owner or an administrative
// caller: every field except the secret hash and salt.
type FullView struct {
	ID               uuid.UUID      `json:"id"`
	CURP             string         `json:"curp"`
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	DateOfBirth      string         `json:"date_of_birth"`
	Gender           string         `json:"gender"`
	Email            string         `json:"email"`
	PhoneNumber      string         `json:"phone_number"`
	PlaceOfResidence string         `json:"place_of_residence"`
	ClaveHospital    string         `json:"clave_hospital"`
	BloodType        string         `json:"blood_type"`
	CertifiedFile    string         `json:"certified_file"`
	FormAnswers      map[string]any `json:"form_answers"`
	Status           Status         `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// AuthResponse is the minimal payload returned on registration and login.
type AuthResponse struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (d *Donor) PublicView() PublicView {
	return PublicView{
		ID:               d.ID,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Gender:           d.Gender,
		Email:            d.Email,
		PlaceOfResidence: d.PlaceOfResidence,
		ClaveHospital:    d.ClaveHospital,
		BloodType:        d.BloodType,
		Status:           d.Status,
	}
}

func (d *Donor) FullView() FullView {
	return FullView{
		ID:               d.ID,
		CURP:             d.CURP,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		DateOfBirth:      d.DateOfBirth,
		Gender:           d.Gender,
		Email:            d.Email,
		PhoneNumber:      d.PhoneNumber,
		PlaceOfResidence: d.PlaceOfResidence,
		ClaveHospital:    d.ClaveHospital,
		BloodType:        d.BloodType,
		CertifiedFile:    d.CertifiedFile,
		FormAnswers:      d.FormAnswers,
		Status:           d.Status,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// AuthView pairs the donor's email with a freshly minted bearer token.
func (d *Donor) AuthView(token string) AuthResponse {
	return AuthResponse{Email: d.Email, Token: token}
}
