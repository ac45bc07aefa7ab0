/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package publish is a minimal HTTP client for the episode publishing API.
// Publishing is two-step: upload each page image, then create the episode
// referencing the uploaded media.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
)

// Client talks to the publishing backend.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new publish client. baseURL may include a trailing
// slash; it will be normalized.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithTimeout overrides the default request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.client.Timeout = d
	return c
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Media is the server record for one uploaded page image.
type Media struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// UploadPage uploads one exported page image as multipart form data.
func (c *Client) UploadPage(ctx context.Context, path string) (Media, error) {
	f, err := os.Open(path)
	if err != nil {
		return Media{}, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Media{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return Media{}, err
	}
	if err := mw.Close(); err != nil {
		return Media{}, err
	}

	var m Media
	if err := c.do(ctx, http.MethodPost, "/api/media", mw.FormDataContentType(), &buf, &m); err != nil {
		return Media{}, err
	}
	return m, nil
}

// Episode is the payload for creating a published episode.
type Episode struct {
	Title    string   `json:"title"`
	Caption  string   `json:"caption,omitempty"`
	MediaIDs []string `json:"media_ids"`
}

// Receipt is the server acknowledgement for a published episode.
type Receipt struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PublishEpisode uploads every artifact in page order and creates the
// episode. Artifacts must already be exported to disk.
func (c *Client) PublishEpisode(ctx context.Context, title, caption string, artifacts []domain.Artifact) (Receipt, error) {
	if len(artifacts) == 0 {
		return Receipt{}, fmt.Errorf("publish episode %q: no artifacts", title)
	}
	ids := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		m, err := c.UploadPage(ctx, a.Path)
		if err != nil {
			return Receipt{}, fmt.Errorf("upload %s: %w", a.SceneID, err)
		}
		ids = append(ids, m.ID)
	}

	body, err := json.Marshal(Episode{Title: title, Caption: caption, MediaIDs: ids})
	if err != nil {
		return Receipt{}, err
	}
	var r Receipt
	if err := c.do(ctx, http.MethodPost, "/api/episodes", "application/json", bytes.NewReader(body), &r); err != nil {
		return Receipt{}, err
	}
	return r, nil
}
