package model

import (
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

const (
	PatientRequiredMessage  = "Full name and phone number are required"
	PatientPhoneFixMessage  = "Please fix the phone number format before submitting"
	PatientDuplicateMessage = "This patient already exists in your records. Please avoid duplicate entries."

	PatientCreatedMessage = "Patient added successfully!"
	PatientUpdatedMessage = "Patient updated successfully!"
	PatientDeletedMessage = "Patient deleted successfully!"
)

// CareRecipient is a person a caregiver manages records for.
type CareRecipient struct {
	Base
	OwnerID          uuid.UUID `db:"owner_id" json:"owner_id"`
	FullName         string    `db:"full_name" json:"full_name"`
	PrimaryContact   string    `db:"primary_contact" json:"primary_contact"`
	SecondaryContact string    `db:"secondary_contact" json:"secondary_contact"`
	DateOfBirth      Date      `db:"date_of_birth" json:"date_of_birth"`
	Gender           string    `db:"gender" json:"gender"`
	Address          string    `db:"address" json:"address"`
	Notes            string    `db:"notes" json:"notes"`
	Timezone         string    `db:"timezone" json:"timezone"`
}

// Matches reports whether term is a case-insensitive substring of the
// name or either contact.
func (p *CareRecipient) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.FullName), term) ||
		strings.Contains(strings.ToLower(p.PrimaryContact), term) ||
		strings.Contains(strings.ToLower(p.SecondaryContact), term)
}

// PatientForm is the create/update payload for a care recipient.
type PatientForm struct {
	FullName         string `json:"full_name" validate:"required"`
	PrimaryContact   string `json:"primary_contact" validate:"required,phone"`
	SecondaryContact string `json:"secondary_contact"`
	DateOfBirth      Date   `json:"date_of_birth"`
	Gender           string `json:"gender" validate:"omitempty,oneof=male female other prefer_not_to_say"`
	Address          string `json:"address"`
	Notes            string `json:"notes"`
	Timezone         string `json:"timezone" validate:"omitempty,zone"`
}

var patientMessages = map[string]string{
	"full_name.required":       "Full name is required",
	"primary_contact.required": "Phone number is required",
	"primary_contact.phone":    PhoneFormatMessage,
}

// Normalize trims the name and contact fields.
func (f PatientForm) Normalize() PatientForm {
	f.FullName = strings.TrimSpace(f.FullName)
	f.PrimaryContact = strings.TrimSpace(f.PrimaryContact)
	f.SecondaryContact = strings.TrimSpace(f.SecondaryContact)
	f.Timezone = strings.TrimSpace(f.Timezone)
	return f
}

// Validate returns every field problem of the normalized form.
func (f PatientForm) Validate() []apperrors.FieldError {
	f = f.Normalize()
	fields := fieldErrors(Validator().Struct(f), patientMessages)
	return append(fields, dateError("date_of_birth", f.DateOfBirth)...)
}

// Check validates the form and returns the banner error, if any.
func (f PatientForm) Check() error {
	n := f.Normalize()
	fields := n.Validate()
	missing := n.FullName == "" || n.PrimaryContact == ""
	if !missing && len(fields) > 0 && fields[0].Field == "primary_contact" {
		return apperrors.Validation(PatientPhoneFixMessage, fields)
	}
	return check(fields, missing, PatientRequiredMessage)
}

// Apply copies the normalized form onto p.
func (f PatientForm) Apply(p *CareRecipient) {
	n := f.Normalize()
	p.FullName = n.FullName
	p.PrimaryContact = n.PrimaryContact
	p.SecondaryContact = n.SecondaryContact
	p.DateOfBirth = n.DateOfBirth
	p.Gender = n.Gender
	p.Address = n.Address
	p.Notes = n.Notes
	p.Timezone = n.Timezone
}

// Payload is the webhook body for patient notifications: the submitted
// form plus the extra keys given.
func (f PatientForm) Payload(extra map[string]interface{}) map[string]interface{} {
	n := f.Normalize()
	data := map[string]interface{}{
		"full_name":         n.FullName,
		"primary_contact":   nullable(n.PrimaryContact),
		"secondary_contact": n.SecondaryContact,
		"date_of_birth":     n.DateOfBirth,
		"gender":            n.Gender,
		"address":           n.Address,
		"notes":             n.Notes,
		"timezone":          nullable(n.Timezone),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
