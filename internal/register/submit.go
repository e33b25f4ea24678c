package register

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appLog "progcal/internal/log"
)

const (
	// GenericFailureMessage is shown when the endpoint rejects a
	// registration without saying why.
	GenericFailureMessage = "Registration failed. Please try again."

	// NetworkFailureMessage is shown when the request never completed.
	NetworkFailureMessage = "We couldn't reach the registration service. Please check your connection and try again."
)

// Submitter delivers one registration payload.
type Submitter interface {
	Submit(ctx context.Context, p Payload) error
}

// RejectedError is an application-level failure: non-2xx status or
// success=false. Message is shown to the user verbatim.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("registration rejected (status %d): %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "registration request failed: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// submitResponse is the endpoint's JSON reply.
type submitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HTTPSubmitter POSTs payloads as JSON.
type HTTPSubmitter struct {
	url    string
	client *http.Client
}

// NewHTTPSubmitter creates a submitter for endpoint. A zero timeout leaves
// the transport default in place.
func NewHTTPSubmitter(endpoint string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{
		url:    endpoint,
		client: &http.Client{Timeout: timeout},
	}
}

// Submit sends p once; it never retries.
func (s *HTTPSubmitter) Submit(ctx context.Context, p Payload) error {
	const op = "register.HTTPSubmitter.Submit"

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &NetworkError{Err: err}
	}

	var out submitResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || decodeErr != nil || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = GenericFailureMessage
		}
		if decodeErr != nil {
			appLog.Debug("registration response is not JSON", "status", resp.StatusCode, "err", decodeErr)
		}
		return &RejectedError{Status: resp.StatusCode, Message: msg}
	}
	return nil
}
