package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/model"
)

func TestQAClientNotConfigured(t *testing.T) {
	_, err := NewQAClient("").Ask(context.Background(), uuid.New(), uuid.New(), "q")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestQAClientJSONReply(t *testing.T) {
	account, patient := uuid.New(), uuid.New()
	var got qaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"answer":"Take with food","sources":[{"name":"lab.pdf"}]}`))
	}))
	defer srv.Close()

	answer, err := NewQAClient(srv.URL).Ask(context.Background(), account, patient, "How?")
	require.NoError(t, err)
	assert.Equal(t, "Take with food", answer.Text)
	assert.Equal(t, []Source{{Name: "lab.pdf"}}, answer.Sources)
	assert.Equal(t, qaRequest{UserID: account.String(), PatientID: patient.String(), Question: "How?"}, got)
}

func TestQAClientTextReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain answer"))
	}))
	defer srv.Close()

	answer, err := NewQAClient(srv.URL).Ask(context.Background(), uuid.New(), uuid.New(), "q")
	require.NoError(t, err)
	assert.Equal(t, "plain answer", answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestQAClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewQAClient(srv.URL).Ask(context.Background(), uuid.New(), uuid.New(), "q")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestParseAnswer(t *testing.T) {
	text := "**Answer:** Blood pressure is **normal**.\n\nReport Link: example.com/reports/a b.pdf"
	parsed := ParseAnswer(text)
	assert.Equal(t, "Blood pressure is normal.", parsed.Text)
	require.NotNil(t, parsed.Link)
	assert.Equal(t, "https://example.com/reports/a%20b.pdf", parsed.Link.Href)
	assert.Equal(t, "example.com/reports/a b.pdf", parsed.Link.Label)
}

func TestParseAnswerKeepsScheme(t *testing.T) {
	parsed := ParseAnswer("Fine.\n**Report Link: http://x.test/r.pdf**")
	require.NotNil(t, parsed.Link)
	assert.Equal(t, "http://x.test/r.pdf", parsed.Link.Href)
	assert.Equal(t, "Fine.", parsed.Text)
}

func TestParseAnswerEscapesLink(t *testing.T) {
	cases := map[string]string{
		"Report Link: x.test/r%20a.pdf":                  "https://x.test/r%20a.pdf",
		"Report Link: x.test/résumé.pdf":                 "https://x.test/r%C3%A9sum%C3%A9.pdf",
		"Report Link: https://x.test/r.pdf?name=a b&v=2": "https://x.test/r.pdf?name=a%20b&v=2",
		"Report Link: x.test/r.pdf#page 2":               "https://x.test/r.pdf#page%202",
	}
	for text, want := range cases {
		parsed := ParseAnswer("Fine.\n" + text)
		require.NotNil(t, parsed.Link, text)
		assert.Equal(t, want, parsed.Link.Href, text)
	}
}

func TestParseAnswerWithoutLink(t *testing.T) {
	parsed := ParseAnswer("just text")
	assert.Nil(t, parsed.Link)
	assert.Equal(t, "just text", parsed.Text)
	assert.Equal(t, ParsedAnswer{}, ParseAnswer(""))
}

func TestUploadClientJSONReply(t *testing.T) {
	account, patientID := uuid.New(), uuid.New()
	patient := &model.CareRecipient{FullName: "Jane Doe"}
	patient.ID = patientID

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, account.String(), r.FormValue("user_id"))
		assert.Equal(t, patientID.String(), r.FormValue("patient_id"))
		assert.Equal(t, "Jane Doe", r.FormValue("patient_full_name"))
		assert.Contains(t, r.FormValue("patient_details"), `"full_name":"Jane Doe"`)

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "lab.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4", string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"processed","summary_text":"All normal","storage_path":"https://files.test/lab.pdf"}`))
	}))
	defer srv.Close()

	res, err := NewUploadClient(srv.URL).Upload(context.Background(), UploadRequest{
		AccountID:   account,
		PatientID:   patientID,
		Patient:     patient,
		FileName:    "lab.pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, &UploadResult{Status: "processed", Summary: "All normal", URL: "https://files.test/lab.pdf"}, res)
}

func TestParseUploadReply(t *testing.T) {
	res := parseUploadReply([]byte(`{"summary":"s","external_url":"https://x"}`), true)
	assert.Equal(t, &UploadResult{Status: model.ReportStatusPending, Summary: "s", URL: "https://x"}, res)

	res = parseUploadReply([]byte("queued for processing"), false)
	assert.Equal(t, &UploadResult{Status: model.ReportStatusPending, Summary: "queued for processing"}, res)
}

func TestUploadClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewUploadClient(srv.URL).Upload(context.Background(), UploadRequest{
		FileName: "a.pdf",
		Content:  strings.NewReader("x"),
	})
	assert.Error(t, err)
}

func TestSummaryClientEnvelope(t *testing.T) {
	account := uuid.New()
	fixed := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	var got summaryEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"summary":"**Use:** pain relief"}`))
	}))
	defer srv.Close()

	c := NewSummaryClient(srv.URL, WithClock(func() time.Time { return fixed }))
	text, err := c.Request(context.Background(), account, SummaryRequest{MedicineName: "Ibuprofen", TimesPerDay: 2})
	require.NoError(t, err)
	assert.Equal(t, "**Use:** pain relief", text)
	assert.Equal(t, SummaryEvent, got.Event)
	assert.Equal(t, account.String(), got.UserID)
	assert.Equal(t, "2024-03-15T09:00:00.000Z", got.Timestamp)
	assert.Equal(t, "Ibuprofen", got.Data.MedicineName)
	assert.Equal(t, 2, got.Data.TimesPerDay)
}

func TestSummaryClientJSONWithoutSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	text, err := NewSummaryClient(srv.URL).Request(context.Background(), uuid.New(), SummaryRequest{MedicineName: "x"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"result\": \"ok\"\n}", text)
}

func TestParseSummary(t *testing.T) {
	lines := ParseSummary("**Use:** pain relief\n**Dose**: 200mg\nSide effects: nausea\njust a line")
	assert.Equal(t, []SummaryLine{
		{Title: "Use", Body: "pain relief"},
		{Title: "Dose", Body: "200mg"},
		{Title: "Side effects", Body: "nausea"},
		{Body: "just a line"},
	}, lines)

	assert.Equal(t, []SummaryLine{{Body: NoSummaryMessage}}, ParseSummary(""))
}
