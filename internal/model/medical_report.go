package model

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ReportStatusPending = "Pending"
	ReportStatusError   = "Error"

	ReportTypeMessage     = "Only PDF and JPEG reports are allowed."
	ReportNoPatient       = "Please select a patient before uploading a report."
	ReportDeletedMessage  = "Report deleted successfully!"
	ReportAnswerFailed    = "Unable to get an answer right now."
	ReportUnknownFileName = "Unknown report"
)

// StatusBucket groups report statuses for display.
type StatusBucket string

const (
	BucketSuccess StatusBucket = "success"
	BucketPending StatusBucket = "pending"
	BucketError   StatusBucket = "error"
	BucketNeutral StatusBucket = "neutral"
)

var allowedReportTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
}

var allowedReportExt = map[string]bool{
	"pdf":  true,
	"jpg":  true,
	"jpeg": true,
}

// IsAllowedReport accepts PDF and JPEG files by MIME type, falling back to
// the file extension when the MIME type is missing or generic.
func IsAllowedReport(fileName, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if allowedReportTypes[ct] {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	return allowedReportExt[ext]
}

// ReportStatusBucket normalizes a free-form status case-insensitively.
func ReportStatusBucket(status string) StatusBucket {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "processed", "completed", "ready", "success":
		return BucketSuccess
	case "pending", "processing", "queued":
		return BucketPending
	case "error", "failed":
		return BucketError
	}
	return BucketNeutral
}

// MedicalReport is an uploaded document for a care recipient.
type MedicalReport struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	OwnerID     uuid.UUID `db:"owner_id" json:"owner_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	ExternalURL string    `db:"external_url" json:"external_url"`
	Status      string    `db:"status" json:"status"`
	SummaryText string    `db:"summary_text" json:"summary_text"`
	FileType    string    `db:"file_type" json:"file_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ReportView is the list row shown for a report.
type ReportView struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	UploadedAt time.Time    `json:"uploaded_at"`
	Status     string       `json:"status"`
	Bucket     StatusBucket `json:"bucket"`
	Summary    string       `json:"summary"`
	URL        string       `json:"url,omitempty"`
}

// URL prefers the storage path over the external URL.
func (r *MedicalReport) URL() string {
	if r.StoragePath != "" {
		return r.StoragePath
	}
	return r.ExternalURL
}

func (r *MedicalReport) View() ReportView {
	name := r.FileName
	if name == "" {
		name = ReportUnknownFileName
	}
	status := r.Status
	if status == "" {
		status = ReportStatusPending
	}
	return ReportView{
		ID:         r.ID,
		Name:       name,
		UploadedAt: r.CreatedAt,
		Status:     status,
		Bucket:     ReportStatusBucket(status),
		Summary:    r.SummaryText,
		URL:        r.URL(),
	}
}
