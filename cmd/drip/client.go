package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leadkit/drip/internal/escalation"
	"github.com/leadkit/drip/internal/lead"
)

// opsClient talks to a running daemon's ops API.
type opsClient struct {
	baseURL string
	http    *http.Client
}

func newOpsClient(addr string) *opsClient {
	return &opsClient{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *opsClient) listEscalations(ctx context.Context) ([]*escalation.Request, error) {
	var body struct {
		Escalations []*escalation.Request `json:"escalations"`
	}
	if err := c.get(ctx, "/api/v1/escalations", &body); err != nil {
		return nil, err
	}
	return body.Escalations, nil
}

func (c *opsClient) listLeads(ctx context.Context) ([]*lead.Lead, error) {
	var body struct {
		Leads []*lead.Lead `json:"leads"`
	}
	if err := c.get(ctx, "/api/v1/leads", &body); err != nil {
		return nil, err
	}
	return body.Leads, nil
}

func (c *opsClient) resolve(ctx context.Context, leadID, message string) error {
	payload := map[string]string{"message": message}
	return c.post(ctx, fmt.Sprintf("/api/v1/escalations/%s/resolve", leadID), payload)
}

func (c *opsClient) skip(ctx context.Context, leadID string) error {
	return c.post(ctx, fmt.Sprintf("/api/v1/escalations/%s/skip", leadID), struct{}{})
}

func (c *opsClient) get(ctx context.Context, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

func (c *opsClient) post(ctx context.Context, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// apiError extracts the server's error message so CLI users see the real
// reason instead of a bare status code.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s", body.Error)
	}
	return fmt.Errorf("unexpected status %d from ops server", resp.StatusCode)
}
