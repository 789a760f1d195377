package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
)

// ErrNotFound is returned when a lookup matches no row visible to the owner.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("record already exists")

// All repository interfaces in one file
type (
	// PatientRepository stores care recipients. Every query is scoped by owner.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.CareRecipient) error
		Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error)
		Update(ctx context.Context, patient *model.CareRecipient) error
		Delete(ctx context.Context, ownerID, id uuid.UUID) error
		// ListByOwner returns the owner's recipients, newest first.
		ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.CareRecipient, error)
		// FindDuplicate matches the name case-insensitively and the primary
		// contact exactly. It returns nil, nil when nothing matches.
		FindDuplicate(ctx context.Context, ownerID uuid.UUID, fullName, primaryContact string) (*model.CareRecipient, error)
	}

	MedicationRepository interface {
		Create(ctx context.Context, plan *model.MedicationPlan) error
		Delete(ctx context.Context, patientID, id uuid.UUID) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicationPlan, error)
		ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.MedicationPlan, error)
	}

	ReminderRepository interface {
		Create(ctx context.Context, reminder *model.Reminder) error
		Delete(ctx context.Context, patientID, id uuid.UUID) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Reminder, error)
		ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.Reminder, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, patientID, id uuid.UUID) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
		ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.Appointment, error)
	}

	ReportRepository interface {
		Create(ctx context.Context, report *model.MedicalReport) error
		// UpdateResult writes status, summary and storage fields.
		UpdateResult(ctx context.Context, report *model.MedicalReport) error
		Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error
		ListByPatient(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.MedicalReport, error)
	}

	ProfileRepository interface {
		Upsert(ctx context.Context, profile *model.Profile) error
		Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		// GetByPendingEmail finds the account waiting to switch to email.
		GetByPendingEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
	}

	// TokenRepository stores one-time email codes by hash.
	TokenRepository interface {
		Create(ctx context.Context, token *model.AuthToken) error
		// Consume marks a live token used and returns it. It returns
		// ErrNotFound when no unexpired, unused token matches.
		Consume(ctx context.Context, userID uuid.UUID, kind model.TokenKind, tokenHash string, now time.Time) (*model.AuthToken, error)
		// RecordFailure counts a wrong code against the user's live tokens
		// of kind. Tokens that reach maxAttempts are used up.
		RecordFailure(ctx context.Context, userID uuid.UUID, kind model.TokenKind, now time.Time, maxAttempts int) error
		// Cleanup deletes tokens that expired before cutoff and returns the count.
		Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
	}
)
