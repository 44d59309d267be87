// Package remote implements the document store contract over HTTP against a
// deployed headnotes endpoint (or any endpoint honoring the same contract,
// such as a hosted script with a shared secret).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/repository"
)

const (
	headerIfMatch  = "If-Match"
	headerClientID = "X-Headnotes-Client"
)

// Store implements repository.DocumentStore against a remote endpoint.
type Store struct {
	baseURL  string
	secret   string
	clientID string
	client   *http.Client
}

// New creates a remote store client. Each client carries a generated
// instance ID so the server can attribute its writes.
func New(baseURL, secret string) *Store {
	return &Store{
		baseURL:  baseURL,
		secret:   secret,
		clientID: uuid.NewString(),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// ClientID returns this client's instance ID.
func (s *Store) ClientID() string {
	return s.clientID
}

// Get fetches the remote document. The endpoint serves an empty default with
// an empty updatedAt when nothing is stored; that maps to ErrNotFound here.
func (s *Store) Get(ctx context.Context) (*project.Project, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/document", nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.errorFromResponse(resp)
	}

	var doc project.Project
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode remote document: %w", err)
	}
	if doc.UpdatedAt == "" {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

// Put writes the document conditionally. An empty expectedVersion omits the
// If-Match header, which the endpoint accepts only when nothing is stored.
func (s *Store) Put(ctx context.Context, doc *project.Project, expectedVersion string) (*project.Project, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/api/v1/document", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if expectedVersion != "" {
		req.Header.Set(headerIfMatch, expectedVersion)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.errorFromResponse(resp)
	}

	var stored project.Project
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode stored document: %w", err)
	}
	return &stored, nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set(headerClientID, s.clientID)
	if s.secret != "" {
		req.Header.Set("Authorization", "Bearer "+s.secret)
	}
}

func (s *Store) errorFromResponse(resp *http.Response) error {
	var body struct {
		Error            string `json:"error"`
		Reason           string `json:"reason"`
		CurrentUpdatedAt string `json:"currentUpdatedAt"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	switch resp.StatusCode {
	case http.StatusConflict:
		return &repository.ConflictError{CurrentUpdatedAt: body.CurrentUpdatedAt}
	case http.StatusPreconditionRequired:
		return repository.ErrPreconditionRequired
	case http.StatusServiceUnavailable:
		return repository.ErrUnavailable
	default:
		if body.Reason != "" {
			return fmt.Errorf("remote returned %d: %s: %s", resp.StatusCode, body.Error, body.Reason)
		}
		return fmt.Errorf("remote returned %d: %s", resp.StatusCode, body.Error)
	}
}
