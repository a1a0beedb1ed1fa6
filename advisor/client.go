package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"privacy-advisor/assessment"
)

// ServerError é uma resposta não-2xx do relay.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

// Client chama POST /api/analyze de um relay.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 3 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type analyzeRequest struct {
	Domain       string `json:"domain"`
	UserType     string `json:"userType"`
	Region       string `json:"region"`
	ForceRefresh bool   `json:"forceRefresh,omitempty"`
}

func (c *Client) Analyze(ctx context.Context, domain string, prefs Prefs, forceRefresh bool) (assessment.Record, error) {
	payload, err := json.Marshal(analyzeRequest{
		Domain:       domain,
		UserType:     prefs.UserType,
		Region:       prefs.Region,
		ForceRefresh: forceRefresh,
	})
	if err != nil {
		return assessment.Record{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", bytes.NewReader(payload))
	if err != nil {
		return assessment.Record{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return assessment.Record{}, fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		msg := body.Error
		if msg == "" {
			msg = fmt.Sprintf("Server error (%d)", resp.StatusCode)
		}
		return assessment.Record{}, &ServerError{StatusCode: resp.StatusCode, Message: msg}
	}

	var rec assessment.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return assessment.Record{}, fmt.Errorf("decode analysis: %w", err)
	}
	return rec.Normalize(), nil
}
