// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrServerNotRunning indicates the PhotoStack server refused the connection.
var ErrServerNotRunning = errors.New("photostack server is not running (connection refused)")

// defaultHTTPClient is the package-level HTTP client used by server-backed
// commands. Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 2 * time.Minute,
}

// apiClient provides HTTP access to a running PhotoStack server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

// newAPIClient creates a client targeting the given base URL.
func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    defaultHTTPClient,
	}
}

// postJSON performs a POST request with a JSON body and decodes the
// JSON response into dest. Returns ErrServerNotRunning on connection
// refused.
func (c *apiClient) postJSON(path string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		if isDialError(err) {
			return ErrServerNotRunning
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
