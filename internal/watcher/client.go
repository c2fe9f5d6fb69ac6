// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

// Package watcher feeds new and changed image files into the
// ingestion endpoint: a live fsnotify watcher for drop directories
// and a periodic scan reconciler backed by the file change index.
package watcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

// Submitter sends one file to the ingestion endpoint.
type Submitter interface {
	Submit(ctx context.Context, path string) error
}

// Client submits files to a PhotoStack server over HTTP multipart.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a Client for the given base endpoint URL
// (e.g. "http://127.0.0.1:8088").
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 5 * time.Minute},
	}
}

// Submit uploads the file for full ingestion: OCR, auto-tagging, and
// embedding enabled, the vision description pass disabled.
func (c *Client) Submit(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return pserr.Wrap(err, pserr.CodeWatcherSubmitFailure, "opening file for submit")
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(path)))
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	q := url.Values{}
	q.Set("ocr", "true")
	q.Set("auto_tag", "true")
	q.Set("embed", "true")
	q.Set("preprocess", "true")
	q.Set("vision", "false")

	u := fmt.Sprintf("%s/photostack/ingest?%s", c.endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return pserr.Wrap(err, pserr.CodeWatcherSubmitFailure, "building submit request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return pserr.Wrap(err, pserr.CodeWatcherSubmitFailure, "submitting file")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pserr.Errorf(pserr.CodeWatcherSubmitFailure,
			"ingest endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
