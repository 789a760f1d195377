package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	SummaryEvent = "medication.summary.request"

	NoSummaryMessage      = "No summary available."
	SummaryNetworkMessage = "Network error while requesting summary."
)

// SummaryRequest is the medication described to the summary service.
type SummaryRequest struct {
	MedicineName   string `json:"medicine_name" binding:"required"`
	Dosage         string `json:"dosage"`
	FrequencyUnit  string `json:"frequency_unit"`
	FrequencyValue int    `json:"frequency_value"`
	TimesPerDay    int    `json:"times_per_day"`
}

type SummaryClient struct {
	base
}

func NewSummaryClient(url string, opts ...Option) *SummaryClient {
	return &SummaryClient{base: newBase("summary", url, opts)}
}

type summaryEnvelope struct {
	UserID    string         `json:"user_id"`
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      SummaryRequest `json:"data"`
}

// Request returns the summary text. A JSON reply without a summary field
// is returned indented as-is.
func (c *SummaryClient) Request(ctx context.Context, accountID uuid.UUID, data SummaryRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(summaryEnvelope{
		UserID:    accountID.String(),
		Event:     SummaryEvent,
		Timestamp: c.timestamp(),
		Data:      data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	reply, jsonReply, err := c.do(req)
	if err != nil {
		return "", err
	}
	if !jsonReply {
		return string(reply), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(reply, &obj); err != nil {
		return string(reply), nil
	}
	if s := stringField(obj, "summary"); s != "" {
		return s, nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, reply, "", "  "); err != nil {
		return string(reply), nil
	}
	return pretty.String(), nil
}

// SummaryLine is one rendered line; Title is empty for plain lines.
type SummaryLine struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

var (
	boldLabel  = regexp.MustCompile(`^\s*\*\*([^*]+?)\*\*\s*(.*)$`)
	colonLabel = regexp.MustCompile(`^\s*([^:]+):\s*(.*)$`)
)

// ParseSummary splits text into label/value lines. "**Label:** rest",
// "**Label**: rest" and "Label: rest" all yield a titled line.
func ParseSummary(text string) []SummaryLine {
	if text == "" {
		text = NoSummaryMessage
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]SummaryLine, 0, len(lines))
	for _, line := range lines {
		if m := boldLabel.FindStringSubmatch(line); m != nil {
			title := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), ":"))
			if title != "" {
				rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(m[2]), ":"))
				out = append(out, SummaryLine{Title: title, Body: rest})
				continue
			}
		}
		if m := colonLabel.FindStringSubmatch(line); m != nil {
			out = append(out, SummaryLine{Title: strings.TrimSpace(m[1]), Body: m[2]})
			continue
		}
		out = append(out, SummaryLine{Body: line})
	}
	return out
}
