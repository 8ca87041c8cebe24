// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package bugzilla

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "testkey", zap.NewNop().Sugar())
}

func TestCreateTicket(t *testing.T) {
	var gotPath string
	var gotBody TicketFields
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "testkey", r.URL.Query().Get("api_key"), "every request must carry the API key")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"id": 4242}`))
	})

	id, err := c.CreateTicket(context.Background(), TicketFields{
		Product:    "Infrastructure",
		Component:  "Security",
		Summary:    "[2 hosts] Bulk vulnerability report",
		Whiteboard: "autoentry v2b-key=it-opsec",
	})
	require.NoError(t, err)
	assert.Equal(t, 4242, id)
	assert.Equal(t, "/rest/bug", gotPath)
	assert.Equal(t, "autoentry v2b-key=it-opsec", gotBody.Whiteboard)
}

func TestSearchTickets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, []string{"autoentry", "v2b-key=it-opsec"}, q["whiteboard"])
		assert.Equal(t, []string{"NEW", "ASSIGNED", "REOPENED", "UNCONFIRMED"}, q["status"])
		assert.Equal(t, "vuln2bugs@example.com", q.Get("creator"))
		_, _ = w.Write([]byte(`{"bugs": [{"id": 1, "status": "NEW"}, {"id": 7, "status": "ASSIGNED"}]}`))
	})

	tickets, err := c.SearchTickets(context.Background(), SearchCriteria{
		Product:    "Infrastructure",
		Component:  "Security",
		Creator:    "vuln2bugs@example.com",
		Whiteboard: []string{"autoentry", "v2b-key=it-opsec"},
		Statuses:   []string{"NEW", "ASSIGNED", "REOPENED", "UNCONFIRMED"},
	})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, 7, tickets[1].ID, "backend order is ascending id; last is newest")
}

func TestListAttachments(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("hostname,1.2.3.4,kernel\n"))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/bug/42/attachment", r.URL.Path)
		_, _ = w.Write([]byte(`{"bugs": {"42": [
			{"id": 9, "file_name": "short_list.csv", "data": "` + content + `", "is_obsolete": 0},
			{"id": 10, "file_name": "short_list.csv", "data": "` + content + `", "is_obsolete": 1}
		]}}`))
	})

	atts, err := c.ListAttachments(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.False(t, bool(atts[0].IsObsolete))
	assert.True(t, bool(atts[1].IsObsolete), "integer-encoded obsolete flag must decode")

	text, err := atts[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "hostname,1.2.3.4,kernel\n", text)
}

func TestPostAttachment_EncodesBase64(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{}`))
	})

	err := c.PostAttachment(context.Background(), 42, NewAttachment{
		FileName: "short_list.csv",
		Summary:  "CSV list",
		Data:     "plain text",
	})
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("plain text")), got["data"])
	assert.Equal(t, "text/plain", got["content_type"])
}

func TestUpdateAttachment_MarkObsolete(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/rest/bug/attachment/9", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{}`))
	})

	obsolete := true
	name := "short_list.csv"
	err := c.UpdateAttachment(context.Background(), 9, AttachmentUpdate{IsObsolete: &obsolete, FileName: &name})
	require.NoError(t, err)
	assert.Equal(t, true, got["is_obsolete"])
	assert.Equal(t, []any{float64(9)}, got["ids"])
}

func TestSetNeedinfo(t *testing.T) {
	var got TicketUpdate
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.SetNeedinfo(context.Background(), 42, "assignee@example.com"))
	require.Len(t, got.Flags, 1)
	assert.Equal(t, "needinfo", got.Flags[0].Name)
	assert.Equal(t, "?", got.Flags[0].Status)
	assert.Equal(t, "assignee@example.com", got.Flags[0].Requestee)
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": true, "code": 51, "message": "component is invalid"}`))
	})

	_, err := c.CreateTicket(context.Background(), TicketFields{})
	assert.ErrorContains(t, err, "component is invalid")
}
