package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type Source struct {
	Name string `json:"name"`
}

// Answer is the reply of the document Q&A service.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

type QAClient struct {
	base
}

func NewQAClient(url string, opts ...Option) *QAClient {
	return &QAClient{base: newBase("qa", url, opts)}
}

type qaRequest struct {
	UserID    string `json:"user_id"`
	PatientID string `json:"patient_id"`
	Question  string `json:"question"`
}

// Ask posts the question. A JSON reply provides answer and sources; any
// other reply body is the answer text.
func (c *QAClient) Ask(ctx context.Context, accountID, patientID uuid.UUID, question string) (*Answer, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(qaRequest{
		UserID:    accountID.String(),
		PatientID: patientID.String(),
		Question:  question,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal question: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build qa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	reply, jsonReply, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if !jsonReply {
		return &Answer{Text: string(reply), Sources: []Source{}}, nil
	}

	var decoded struct {
		Answer  string          `json:"answer"`
		Sources json.RawMessage `json:"sources"`
	}
	if err := json.Unmarshal(reply, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode qa response: %w", err)
	}
	answer := &Answer{Text: decoded.Answer, Sources: []Source{}}
	var sources []Source
	if json.Unmarshal(decoded.Sources, &sources) == nil && sources != nil {
		answer.Sources = sources
	}
	return answer, nil
}

// Link is a report link pulled out of an answer.
type Link struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// ParsedAnswer is an answer split into body text and an optional link.
type ParsedAnswer struct {
	Text string `json:"text"`
	Link *Link  `json:"link,omitempty"`
}

var (
	reportLinkLine = regexp.MustCompile(`(?i)^\*{0,2}\s*report link\s*:\s*`)
	answerPrefix   = regexp.MustCompile(`(?i)^\*{0,2}\s*answer\s*:\s*`)
	httpScheme     = regexp.MustCompile(`(?i)^https?://`)
)

// ParseAnswer removes the "Report Link:" line from text and returns it as
// a link. Answer prefixes and bold markers are stripped from the body.
// When nothing remains the original text is kept.
func ParseAnswer(text string) ParsedAnswer {
	if text == "" {
		return ParsedAnswer{}
	}

	var linkValue string
	var content []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if reportLinkLine.MatchString(trimmed) {
			linkValue = reportLinkLine.ReplaceAllString(trimmed, "")
			linkValue = strings.TrimSpace(strings.TrimSuffix(linkValue, "**"))
			continue
		}
		cleaned := answerPrefix.ReplaceAllString(trimmed, "")
		cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "**", ""))
		if cleaned != "" {
			content = append(content, cleaned)
		}
	}

	out := ParsedAnswer{Text: strings.TrimSpace(strings.Join(content, "\n"))}
	if out.Text == "" {
		out.Text = text
	}
	if linkValue != "" {
		href := strings.TrimSpace(strings.TrimLeft(linkValue, "*"))
		if !httpScheme.MatchString(href) {
			href = "https://" + href
		}
		if u, err := url.Parse(href); err == nil {
			out.Link = &Link{Href: linkHref(u), Label: linkValue}
		}
	}
	return out
}

// linkHref renders u with unsafe characters escaped. Existing escapes in
// the path are kept.
func linkHref(u *url.URL) string {
	u.RawQuery = strings.ReplaceAll(u.RawQuery, " ", "%20")
	return u.String()
}
