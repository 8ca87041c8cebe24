// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package bugzilla is a minimal REST client for the ticket backend,
// covering exactly the operations the reconciler needs.
package bugzilla

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// The backend throttles aggressive API users; stay well below its limits.
const (
	requestsPerSecond = 5
	burst             = 10
)

// Client talks to one Bugzilla instance authenticated by API key.
type Client struct {
	host    string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// NewClient creates a ticket backend client for host (scheme included).
func NewClient(host, apiKey string, log *zap.SugaredLogger) *Client {
	return &Client{
		host:    host,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		log:     log,
	}
}

type apiError struct {
	IsError bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// do issues one rate-limited API request and decodes the response into out
// (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+"/rest"+path+"?"+query.Encode(), reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// CreateTicket files a new bug and returns its id.
func (c *Client) CreateTicket(ctx context.Context, fields TicketFields) (int, error) {
	var resp struct {
		ID int `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/bug", nil, fields, &resp); err != nil {
		return 0, err
	}
	c.log.Debugw("created ticket", "id", resp.ID, "summary", fields.Summary)
	return resp.ID, nil
}

// UpdateTicket applies a partial update to a bug.
func (c *Client) UpdateTicket(ctx context.Context, id int, update TicketUpdate) error {
	return c.do(ctx, http.MethodPut, "/bug/"+strconv.Itoa(id), nil, update, nil)
}

// PostComment adds a comment to a bug.
func (c *Client) PostComment(ctx context.Context, id int, text string) error {
	return c.UpdateTicket(ctx, id, TicketUpdate{Comment: &CommentBody{Body: text}})
}

// SearchTickets returns bugs matching the criteria, in backend order
// (ascending id), so the last element is the newest.
func (c *Client) SearchTickets(ctx context.Context, criteria SearchCriteria) ([]Ticket, error) {
	query := url.Values{}
	query.Set("product", criteria.Product)
	query.Set("component", criteria.Component)
	query.Set("creator", criteria.Creator)
	for _, wb := range criteria.Whiteboard {
		query.Add("whiteboard", wb)
	}
	for _, status := range criteria.Statuses {
		query.Add("status", status)
	}
	query.Set("order", "bug_id")

	var resp struct {
		Bugs []Ticket `json:"bugs"`
	}
	if err := c.do(ctx, http.MethodGet, "/bug", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bugs, nil
}

// ListAttachments returns all attachments of a bug, obsolete ones included.
func (c *Client) ListAttachments(ctx context.Context, id int) ([]Attachment, error) {
	var resp struct {
		Bugs map[string][]Attachment `json:"bugs"`
	}
	if err := c.do(ctx, http.MethodGet, "/bug/"+strconv.Itoa(id)+"/attachment", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bugs[strconv.Itoa(id)], nil
}

// PostAttachment uploads a new attachment to a bug.
func (c *Client) PostAttachment(ctx context.Context, id int, a NewAttachment) error {
	body := map[string]any{
		"ids":          []int{id},
		"file_name":    a.FileName,
		"summary":      a.Summary,
		"content_type": "text/plain",
		"data":         base64.StdEncoding.EncodeToString([]byte(a.Data)),
	}
	if err := c.do(ctx, http.MethodPost, "/bug/"+strconv.Itoa(id)+"/attachment", nil, body, nil); err != nil {
		return err
	}
	c.log.Debugw("posted attachment", "ticket", id, "file", a.FileName)
	return nil
}

// UpdateAttachment applies a partial update (e.g. marking obsolete) to an
// existing attachment.
func (c *Client) UpdateAttachment(ctx context.Context, attachmentID int, update AttachmentUpdate) error {
	body := struct {
		IDs []int `json:"ids"`
		AttachmentUpdate
	}{IDs: []int{attachmentID}, AttachmentUpdate: update}
	return c.do(ctx, http.MethodPut, "/bug/attachment/"+strconv.Itoa(attachmentID), nil, body, nil)
}

// SetNeedinfo requests a needinfo flag from the given user. The backend may
// reject this when the user denies such requests; callers treat that as a
// soft failure.
func (c *Client) SetNeedinfo(ctx context.Context, id int, requestee string) error {
	update := TicketUpdate{Flags: []FlagChange{{
		Name:      "needinfo",
		Status:    "?",
		Requestee: requestee,
		New:       true,
	}}}
	return c.UpdateTicket(ctx, id, update)
}
