package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

const patientColumns = `
	id, owner_id, full_name,
	COALESCE(primary_contact, '') AS primary_contact,
	COALESCE(secondary_contact, '') AS secondary_contact,
	date_of_birth,
	COALESCE(gender, '') AS gender,
	COALESCE(address, '') AS address,
	COALESCE(notes, '') AS notes,
	COALESCE(timezone, '') AS timezone,
	created_at, updated_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.CareRecipient) error {
	query := `
		INSERT INTO care_recipients (
			id, owner_id, full_name, primary_contact, secondary_contact,
			date_of_birth, gender, address, notes, timezone, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $12)
	`
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = time.Now().UTC()
	patient.UpdatedAt = patient.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.OwnerID,
		patient.FullName,
		patient.PrimaryContact,
		patient.SecondaryContact,
		patient.DateOfBirth,
		patient.Gender,
		patient.Address,
		patient.Notes,
		patient.Timezone,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error) {
	query := `SELECT ` + patientColumns + ` FROM care_recipients WHERE id = $1 AND owner_id = $2`
	var patient model.CareRecipient
	if err := r.db.GetContext(ctx, &patient, query, id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", notFound(err))
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.CareRecipient) error {
	query := `
		UPDATE care_recipients
		SET full_name = $1, primary_contact = NULLIF($2, ''), secondary_contact = NULLIF($3, ''),
			date_of_birth = $4, gender = NULLIF($5, ''), address = NULLIF($6, ''),
			notes = NULLIF($7, ''), timezone = NULLIF($8, ''), updated_at = $9
		WHERE id = $10 AND owner_id = $11
	`
	patient.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query,
		patient.FullName,
		patient.PrimaryContact,
		patient.SecondaryContact,
		patient.DateOfBirth,
		patient.Gender,
		patient.Address,
		patient.Notes,
		patient.Timezone,
		patient.UpdatedAt,
		patient.ID,
		patient.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

// Delete removes the recipient; nested records go with it through
// ON DELETE CASCADE.
func (r *patientRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM care_recipients WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return nil
}

func (r *patientRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.CareRecipient, error) {
	query := `SELECT ` + patientColumns + ` FROM care_recipients WHERE owner_id = $1 ORDER BY created_at DESC`
	patients := []*model.CareRecipient{}
	if err := r.db.SelectContext(ctx, &patients, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) FindDuplicate(ctx context.Context, ownerID uuid.UUID, fullName, primaryContact string) (*model.CareRecipient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM care_recipients
		WHERE owner_id = $1
		AND lower(full_name) = lower($2)
		AND COALESCE(primary_contact, '') = $3
		LIMIT 1
	`
	var patient model.CareRecipient
	err := r.db.GetContext(ctx, &patient, query, ownerID, strings.TrimSpace(fullName), strings.TrimSpace(primaryContact))
	if err != nil {
		if notFound(err) == repository.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check duplicate patient: %w", err)
	}
	return &patient, nil
}
