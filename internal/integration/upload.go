package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
)

// UploadRequest is one report file sent for processing.
type UploadRequest struct {
	AccountID   uuid.UUID
	PatientID   uuid.UUID
	Patient     *model.CareRecipient
	FileName    string
	ContentType string
	Content     io.Reader
}

// UploadResult is what the service reported about the file.
type UploadResult struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

type UploadClient struct {
	base
}

func NewUploadClient(url string, opts ...Option) *UploadClient {
	return &UploadClient{base: newBase("upload", url, opts)}
}

// Upload posts the file as multipart form data. Patient name and details
// are included when the patient is known.
func (c *UploadClient) Upload(ctx context.Context, r UploadRequest) (*UploadResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, r.FileName))
	contentType := r.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, r.Content); err != nil {
		return nil, fmt.Errorf("failed to copy report file: %w", err)
	}

	fields := map[string]string{
		"user_id":    r.AccountID.String(),
		"patient_id": r.PatientID.String(),
	}
	if r.Patient != nil {
		details, err := json.Marshal(r.Patient)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal patient details: %w", err)
		}
		fields["patient_full_name"] = r.Patient.FullName
		fields["patient_details"] = string(details)
	}
	for _, key := range []string{"user_id", "patient_id", "patient_full_name", "patient_details"} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if err := w.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	reply, jsonReply, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parseUploadReply(reply, jsonReply), nil
}

func parseUploadReply(reply []byte, jsonReply bool) *UploadResult {
	if !jsonReply {
		return &UploadResult{Status: model.ReportStatusPending, Summary: string(reply)}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(reply, &obj); err != nil {
		return &UploadResult{Status: model.ReportStatusPending, Summary: string(reply)}
	}
	result := &UploadResult{
		Status:  stringField(obj, "status"),
		Summary: stringField(obj, "summary_text", "summary"),
		URL:     stringField(obj, "storage_path", "external_url"),
	}
	if result.Status == "" {
		result.Status = model.ReportStatusPending
	}
	return result
}
