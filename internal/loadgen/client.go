package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/types"
)

// Outcome classifies an event submission.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeDuplicate
	OutcomeBackpressure
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// Client is a thin JSON client for the stagepay HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// Winner is one paid rank in a finalize response.
type Winner = model.Winner

// FinalizeResult is the part of the finalize response the generator reports.
type FinalizeResult struct {
	Competition struct {
		ID      string   `json:"id"`
		Status  string   `json:"status"`
		Winners []Winner `json:"winners"`
	} `json:"competition"`
	Distributed model.Money `json:"distributed"`
	Forfeited   model.Money `json:"forfeited"`
	Payouts     []struct {
		Rank          int     `json:"rank"`
		ParticipantID string  `json:"participant_id"`
		Payable       bool    `json:"payable"`
		Amount        float64 `json:"amount"`
	} `json:"payouts"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// CreateCompetition opens a competition and returns its ID.
func (c *Client) CreateCompetition(ctx context.Context, name string, pool float64, participants []string) (string, error) {
	body := map[string]any{
		"name":         name,
		"prize_pool":   pool,
		"participants": participants,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/competitions", body, &out, http.StatusCreated); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Submit posts one event.
func (c *Client) Submit(ctx context.Context, competitionID string, e Event) (Outcome, error) {
	err := c.do(ctx, http.MethodPost, c.competitionPath(competitionID, "events"), e, nil, http.StatusAccepted)
	if err == nil {
		return OutcomeAccepted, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusOK:
			return OutcomeDuplicate, nil
		case http.StatusTooManyRequests:
			return OutcomeBackpressure, nil
		}
	}
	return 0, err
}

// Standings fetches the full standings of a competition.
func (c *Client) Standings(ctx context.Context, competitionID string) (types.Standings, error) {
	var out types.Standings
	err := c.do(ctx, http.MethodGet, c.competitionPath(competitionID, "standings"), nil, &out, http.StatusOK)
	return out, err
}

// Finalize closes a competition.
func (c *Client) Finalize(ctx context.Context, competitionID string) (FinalizeResult, error) {
	var out FinalizeResult
	err := c.do(ctx, http.MethodPost, c.competitionPath(competitionID, "finalize"), nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) competitionPath(id, tail string) string {
	return "/competitions/" + url.PathEscape(id) + "/" + tail
}

// do sends a request and decodes the body into out when the status matches
// want. Any other status yields an *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any, want int) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
