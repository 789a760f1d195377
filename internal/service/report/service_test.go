package report

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/integration"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	"github.com/echocare/caregiver-api/internal/repository/memory"
	"github.com/echocare/caregiver-api/internal/service/patient"
	"github.com/echocare/caregiver-api/internal/service/servicetest"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type fakeUploader struct {
	mu      sync.Mutex
	names   []string
	results map[string]*integration.UploadResult
	fail    map[string]error
	// block, when set, holds every upload until it is closed.
	block chan struct{}
	// started is signalled as each upload begins.
	started chan struct{}
	// untilDone holds every upload until its context ends.
	untilDone bool
}

func (f *fakeUploader) Upload(ctx context.Context, r integration.UploadRequest) (*integration.UploadResult, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.untilDone {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	body, _ := io.ReadAll(r.Content)
	f.mu.Lock()
	f.names = append(f.names, r.FileName+":"+string(body))
	f.mu.Unlock()
	if err := f.fail[r.FileName]; err != nil {
		return nil, err
	}
	if res := f.results[r.FileName]; res != nil {
		return res, nil
	}
	return &integration.UploadResult{Status: model.ReportStatusPending}, nil
}

type fakeAnswerer struct {
	calls  int
	answer *integration.Answer
	err    error
}

func (f *fakeAnswerer) Ask(ctx context.Context, accountID, patientID uuid.UUID, question string) (*integration.Answer, error) {
	f.calls++
	return f.answer, f.err
}

func file(name, contentType, body string) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

// ctxReports fails writes made with a finished context, as a database
// driver would.
type ctxReports struct {
	repository.ReportRepository
}

func (r ctxReports) Create(ctx context.Context, report *model.MedicalReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.ReportRepository.Create(ctx, report)
}

func (r ctxReports) UpdateResult(ctx context.Context, report *model.MedicalReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.ReportRepository.UpdateResult(ctx, report)
}

type env struct {
	db       *memory.Store
	patients *patient.Service
	svc      *Service
	uploader *fakeUploader
	answerer *fakeAnswerer
	owner    uuid.UUID
	patient  *model.CareRecipient
}

func setup(t *testing.T) *env {
	t.Helper()
	db := memory.NewStore()
	owner := uuid.New()
	patients := patient.NewService(db.Patients(), &servicetest.Notifier{}, &servicetest.Publisher{})
	p, err := patients.Create(context.Background(), owner, model.PatientForm{FullName: "Asha", PrimaryContact: "+919999888877"})
	require.NoError(t, err)

	e := &env{
		db:       db,
		patients: patients,
		uploader: &fakeUploader{results: map[string]*integration.UploadResult{}, fail: map[string]error{}},
		answerer: &fakeAnswerer{},
		owner:    owner,
		patient:  p,
	}
	e.svc = NewService(db.Reports(), patients, e.uploader, e.answerer, &servicetest.Publisher{}, nil)
	return e
}

func TestUploadBatchSequential(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.uploader.results["a.pdf"] = &integration.UploadResult{Status: "processed", Summary: "All normal", URL: "https://s/a.pdf"}
	e.uploader.fail["c.jpg"] = errors.New("boom")

	res, err := e.svc.UploadBatch(ctx, e.owner, e.patient.ID, []File{
		file("a.pdf", "application/pdf", "A"),
		file("b.docx", "application/msword", "B"),
		file("c.jpg", "image/jpeg", "C"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf:A", "c.jpg:C"}, e.uploader.names)

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "b.docx", res.Rejected[0].Name)
	assert.Equal(t, model.ReportTypeMessage, res.Rejected[0].Message)

	require.Len(t, res.Reports, 2)
	assert.Equal(t, "processed", res.Reports[0].Status)
	assert.Equal(t, model.BucketSuccess, res.Reports[0].Bucket)
	assert.Equal(t, "https://s/a.pdf", res.Reports[0].URL)
	assert.Equal(t, model.ReportStatusError, res.Reports[1].Status)

	list, err := e.svc.List(ctx, e.owner, e.patient.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c.jpg", list[0].Name)
	assert.Equal(t, "All normal", list[1].Summary)
}

func TestUploadBatchNeedsPatient(t *testing.T) {
	e := setup(t)
	_, err := e.svc.UploadBatch(context.Background(), e.owner, uuid.Nil, []File{file("a.pdf", "application/pdf", "")})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, model.ReportNoPatient, appErr.Message)
	assert.Empty(t, e.uploader.names)
}

func TestUploadBatchOnePerAccount(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.uploader.block = make(chan struct{})
	e.uploader.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := e.svc.UploadBatch(ctx, e.owner, e.patient.ID, []File{file("a.pdf", "application/pdf", "A")})
		done <- err
	}()
	<-e.uploader.started
	assert.True(t, e.svc.Uploading(e.owner))

	_, err := e.svc.UploadBatch(ctx, e.owner, e.patient.ID, []File{file("b.pdf", "application/pdf", "B")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	close(e.uploader.block)
	require.NoError(t, <-done)
	assert.False(t, e.svc.Uploading(e.owner))
}

func TestUploadBatchSettlesAfterDeadline(t *testing.T) {
	e := setup(t)
	e.uploader.untilDone = true
	e.svc = NewService(ctxReports{e.db.Reports()}, e.patients, e.uploader, e.answerer, &servicetest.Publisher{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := e.svc.UploadBatch(ctx, e.owner, e.patient.ID, []File{
		file("a.pdf", "application/pdf", "A"),
		file("b.pdf", "application/pdf", "B"),
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, res.Reports, 2)
	assert.False(t, e.svc.Uploading(e.owner))

	list, err := e.svc.List(context.Background(), e.owner, e.patient.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, r := range list {
		assert.Equal(t, model.ReportStatusError, r.Status, r.Name)
	}
}

func TestDeleteReport(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	res, err := e.svc.UploadBatch(ctx, e.owner, e.patient.ID, []File{file("a.pdf", "application/pdf", "A")})
	require.NoError(t, err)
	id := res.Reports[0].ID

	assert.True(t, apperrors.IsCode(e.svc.Delete(ctx, uuid.New(), e.patient.ID, id), apperrors.ErrNotFound))
	require.NoError(t, e.svc.Delete(ctx, e.owner, e.patient.ID, id))

	list, err := e.svc.List(ctx, e.owner, e.patient.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.answerer.answer = &integration.Answer{
		Text:    "Answer: Haemoglobin is normal.\nReport Link: example.com/r.pdf",
		Sources: []integration.Source{{Name: "blood.pdf"}},
	}

	res, err := e.svc.Ask(ctx, e.owner, e.patient.ID, "  Is my blood ok? ")
	require.NoError(t, err)
	assert.Equal(t, "Haemoglobin is normal.", res.Answer)
	require.NotNil(t, res.Link)
	assert.Equal(t, "https://example.com/r.pdf", res.Link.Href)
	assert.Equal(t, "blood.pdf", res.Sources[0].Name)
}

func TestAskWithoutQuestionMakesNoCall(t *testing.T) {
	e := setup(t)
	_, err := e.svc.Ask(context.Background(), e.owner, e.patient.ID, "   ")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
	_, err = e.svc.Ask(context.Background(), e.owner, uuid.Nil, "question")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
	assert.Equal(t, 0, e.answerer.calls)
}

func TestAskFailures(t *testing.T) {
	e := setup(t)
	e.answerer.err = integration.ErrNotConfigured
	_, err := e.svc.Ask(context.Background(), e.owner, e.patient.ID, "q")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnavailable))

	e.answerer.err = errors.New("timeout")
	_, err = e.svc.Ask(context.Background(), e.owner, e.patient.ID, "q")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, model.ReportAnswerFailed, appErr.Message)
}
