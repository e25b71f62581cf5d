package models

import (
	"regexp"
	"strings"

	dErrors "donaria/pkg/domain-errors"
)

// Structural patterns for donor fields. The CURP and date patterns are the
// canonical registry formats: the date pattern is deliberately syntactic only
// (years 1900-2099, month/day ranges) and does not reject calendrically
// impossible dates such as February 30th.
var (
	curpPattern        = regexp.MustCompile(`^([A-Z][AEIOUX][A-Z]{2}\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])[HM](?:AS|B[CS]|C[CLMSH]|D[FG]|G[TR]|HG|JC|M[CNS]|N[ETL]|OC|PL|Q[TR]|S[PLR]|T[CSL]|VZ|YN|ZS)[B-DF-HJ-NP-TV-Z]{3}[A-Z\d])(\d)$`)
	dateOfBirthPattern = regexp.MustCompile(`^(?:[1][9]|[2][0-9])\d{2}-(?:1[0-2]|(0)?[1-9])-(?:(0)?[1-9]|[12]\d|3[01])$`)
	emailPattern       = regexp.MustCompile(`\S+@\S+\.\S+`)
	phonePattern       = regexp.MustCompile(`^\d{10}$`)
	bloodTypePattern   = regexp.MustCompile(`^(?:A|B|AB|O)[+-]$`)
)

// Field-scoped messages surfaced to registrants.
const (
	msgCURPRequired      = "El campo Curp es requerido."
	msgCURPFormat        = "El campo Curp no tiene un formato válido."
	msgFirstNameRequired = "El campo Nombre(s) es requerido."
	msgLastNameRequired  = "El campo Apellidos es requerido."
	msgDOBRequired       = "El campo Fecha de nacimiento es requerido."
	msgDOBFormat         = "El campo Fecha de nacimiento debe tener el formato: YYYY-MM-DD"
	msgEmailRequired     = "El campo Correo es requerido."
	msgEmailFormat       = "El campo Correo no tiene un formato válido."
	msgPhoneFormat       = "El campo Número de telefono debe tener 10 digitos."
	msgBloodRequired     = "El campo Tipo de sangre es requerido."
	msgBloodFormat       = "El tipo de sangre no es valido."
	msgFileRequired      = "El campo Archivo certificado es requerido."
	msgFormRequired      = "El Formulario es requerido."
	msgStatusRequired    = "El campo status no esta establecido."
	msgStatusInvalid     = "El campo status no es valido."
	msgPasswordRequired  = "El campo Contraseña es requerido."
)

// MsgAlreadyInUse renders the uniqueness-conflict message for a field.
func MsgAlreadyInUse(field string) string {
	return "El campo " + field + " ya esta en uso."
}

// fieldRule declares how one string field is checked: required flag, and an
// optional structural pattern applied to the already-normalized value.
// A pattern on a non-required field is only applied when a value is present.
type fieldRule struct {
	field       string
	value       func() string
	required    bool
	requiredMsg string
	pattern     *regexp.Regexp
	patternMsg  string
}

// applyRules evaluates every rule and collects all violations rather than
// stopping at the first, so callers can correct the whole form in one pass.
func applyRules(rules []fieldRule) []dErrors.FieldViolation {
	var violations []dErrors.FieldViolation
	for _, rule := range rules {
		v := rule.value()
		if v == "" {
			if rule.required {
				violations = append(violations, dErrors.FieldViolation{Field: rule.field, Message: rule.requiredMsg})
			}
			continue
		}
		if rule.pattern != nil && !rule.pattern.MatchString(v) {
			violations = append(violations, dErrors.FieldViolation{Field: rule.field, Message: rule.patternMsg})
		}
	}
	return violations
}

// RegisterRequest carries the raw registration form for a new donor.
type RegisterRequest struct {
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
	Status           string         `json:"status"`
	Password         string         `json:"password"`
}

// Normalize trims all string fields and applies case canonicalization:
// CURP and blood type uppercase, email lowercase. Gender defaults to the
// unspecified sentinel when absent.
func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.CURP = strings.ToUpper(strings.TrimSpace(r.CURP))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Gender = strings.TrimSpace(r.Gender)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.PlaceOfResidence = strings.TrimSpace(r.PlaceOfResidence)
	r.ClaveHospital = strings.TrimSpace(r.ClaveHospital)
	r.BloodType = strings.ToUpper(strings.TrimSpace(r.BloodType))
	r.CertifiedFile = strings.TrimSpace(r.CertifiedFile)
	r.Status = strings.TrimSpace(r.Status)

	if r.Gender == "" {
		r.Gender = GenderUnspecified
	}
}

// Follows validation order: Required -> Syntax -> Semantic. All field
// violations are collected; uniqueness of curp/email is a separate phase at
// the store so this stays free of I/O.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	violations := applyRules([]fieldRule{
		{field: "curp", value: func() string { return r.CURP }, required: true, requiredMsg: msgCURPRequired, pattern: curpPattern, patternMsg: msgCURPFormat},
		{field: "first_name", value: func() string { return r.FirstName }, required: true, requiredMsg: msgFirstNameRequired},
		{field: "last_name", value: func() string { return r.LastName }, required: true, requiredMsg: msgLastNameRequired},
		{field: "date_of_birth", value: func() string { return r.DateOfBirth }, required: true, requiredMsg: msgDOBRequired, pattern: dateOfBirthPattern, patternMsg: msgDOBFormat},
		{field: "email", value: func() string { return r.Email }, required: true, requiredMsg: msgEmailRequired, pattern: emailPattern, patternMsg: msgEmailFormat},
		{field: "phone_number", value: func() string { return r.PhoneNumber }, pattern: phonePattern, patternMsg: msgPhoneFormat},
		{field: "blood_type", value: func() string { return r.BloodType }, required: true, requiredMsg: msgBloodRequired, pattern: bloodTypePattern, patternMsg: msgBloodFormat},
		{field: "certified_file", value: func() string { return r.CertifiedFile }, required: true, requiredMsg: msgFileRequired},
		{field: "password", value: func() string { return r.Password }, required: true, requiredMsg: msgPasswordRequired},
	})

	if len(r.FormAnswers) == 0 {
		violations = append(violations, dErrors.FieldViolation{Field: "form_answers", Message: msgFormRequired})
	}

	switch {
	case r.Status == "":
		violations = append(violations, dErrors.FieldViolation{Field: "status", Message: msgStatusRequired})
	case !Status(r.Status).IsValid():
		violations = append(violations, dErrors.FieldViolation{Field: "status", Message: msgStatusInvalid})
	}

	return dErrors.NewViolations(dErrors.CodeValidation, violations)
}

// UpdateRequest carries a partial profile update. Nil pointers leave the
// corresponding field untouched; present fields are re-validated with the
// same rules as registration.
type UpdateRequest struct {
	CURP             *string        `json:"curp,omitempty"`
	FirstName        *string        `json:"first_name,omitempty"`
	LastName         *string        `json:"last_name,omitempty"`
	DateOfBirth      *string        `json:"date_of_birth,omitempty"`
	Gender           *string        `json:"gender,omitempty"`
	Email            *string        `json:"email,omitempty"`
	PhoneNumber      *string        `json:"phone_number,omitempty"`
	PlaceOfResidence *string        `json:"place_of_residence,omitempty"`
	ClaveHospital    *string        `json:"clave_hospital,omitempty"`
	BloodType        *string        `json:"blood_type,omitempty"`
	CertifiedFile    *string        `json:"certified_file,omitempty"`
	FormAnswers      map[string]any `json:"form_answers,omitempty"`
}

func normalizePtr(p *string, f func(string) string) {
	if p != nil {
		*p = f(*p)
	}
}

func (r *UpdateRequest) Normalize() {
	if r == nil {
		return
	}
	normalizePtr(r.CURP, func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) })
	normalizePtr(r.FirstName, strings.TrimSpace)
	normalizePtr(r.LastName, strings.TrimSpace)
	normalizePtr(r.DateOfBirth, strings.TrimSpace)
	normalizePtr(r.Gender, strings.TrimSpace)
	normalizePtr(r.Email, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	normalizePtr(r.PhoneNumber, strings.TrimSpace)
	normalizePtr(r.PlaceOfResidence, strings.TrimSpace)
	normalizePtr(r.ClaveHospital, strings.TrimSpace)
	normalizePtr(r.BloodType, func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) })
	normalizePtr(r.CertifiedFile, strings.TrimSpace)
}

// Follows validation order: Required -> Syntax. A present-but-empty value on
// a required field is a violation; absent fields are skipped.
func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	deref := func(p *string) func() string {
		return func() string {
			if p == nil {
				return ""
			}
			return *p
		}
	}
	present := func(p *string) bool { return p != nil }

	var violations []dErrors.FieldViolation
	check := func(rule fieldRule, isPresent bool) {
		if !isPresent {
			return
		}
		violations = append(violations, applyRules([]fieldRule{rule})...)
	}

	check(fieldRule{field: "curp", value: deref(r.CURP), required: true, requiredMsg: msgCURPRequired, pattern: curpPattern, patternMsg: msgCURPFormat}, present(r.CURP))
	check(fieldRule{field: "first_name", value: deref(r.FirstName), required: true, requiredMsg: msgFirstNameRequired}, present(r.FirstName))
	check(fieldRule{field: "last_name", value: deref(r.LastName), required: true, requiredMsg: msgLastNameRequired}, present(r.LastName))
	check(fieldRule{field: "date_of_birth", value: deref(r.DateOfBirth), required: true, requiredMsg: msgDOBRequired, pattern: dateOfBirthPattern, patternMsg: msgDOBFormat}, present(r.DateOfBirth))
	check(fieldRule{field: "email", value: deref(r.Email), required: true, requiredMsg: msgEmailRequired, pattern: emailPattern, patternMsg: msgEmailFormat}, present(r.Email))
	check(fieldRule{field: "phone_number", value: deref(r.PhoneNumber), pattern: phonePattern, patternMsg: msgPhoneFormat}, present(r.PhoneNumber))
	check(fieldRule{field: "blood_type", value: deref(r.BloodType), required: true, requiredMsg: msgBloodRequired, pattern: bloodTypePattern, patternMsg: msgBloodFormat}, present(r.BloodType))
	check(fieldRule{field: "certified_file", value: deref(r.CertifiedFile), required: true, requiredMsg: msgFileRequired}, present(r.CertifiedFile))

	if r.FormAnswers != nil && len(r.FormAnswers) == 0 {
		violations = append(violations, dErrors.FieldViolation{Field: "form_answers", Message: msgFormRequired})
	}

	return dErrors.NewViolations(dErrors.CodeValidation, violations)
}

// LoginRequest carries donor credentials for authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	violations := applyRules([]fieldRule{
		{field: "email", value: func() string { return r.Email }, required: true, requiredMsg: msgEmailRequired, pattern: emailPattern, patternMsg: msgEmailFormat},
		{field: "password", value: func() string { return r.Password }, required: true, requiredMsg: msgPasswordRequired},
	})
	return dErrors.NewViolations(dErrors.CodeValidation, violations)
}

// ChangePasswordRequest rotates the donor's credential.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	var violations []dErrors.FieldViolation
	if r.CurrentPassword == "" {
		violations = append(violations, dErrors.FieldViolation{Field: "current_password", Message: msgPasswordRequired})
	}
	if r.NewPassword == "" {
		violations = append(violations, dErrors.FieldViolation{Field: "new_password", Message: msgPasswordRequired})
	}
	return dErrors.NewViolations(dErrors.CodeValidation, violations)
}

// ChangeStatusRequest moves the donor through the status state machine.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

func (r *ChangeStatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.TrimSpace(r.Status)
}

func (r *ChangeStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	switch {
	case r.Status == "":
		return dErrors.NewField(dErrors.CodeValidation, "status", msgStatusRequired)
	case !Status(r.Status).IsValid():
		return dErrors.NewField(dErrors.CodeValidation, "status", msgStatusInvalid)
	}
	return nil
}
