// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package owners

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/vuln2bugs/internal/aggregate"
)

const sampleJSON = `{
  "hostname.mozilla.com": {"owner": "infra-team", "requires_review": true},
  "web1.example.com": {"owner": "webops"}
}`

func TestLoad_DownloadAndParse(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sampleJSON))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, t.TempDir())
	require.NoError(t, s.Load(false))

	m := s.Map()
	require.Len(t, m, 2)
	assert.Equal(t, aggregate.OwnerInfo{Owner: "infra-team", RequiresReview: true}, m["hostname.mozilla.com"])
	assert.Equal(t, aggregate.OwnerInfo{Owner: "webops"}, m["web1.example.com"])
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoad_FreshCacheSkipsDownload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sampleJSON))
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewSource(srv.URL, dir)
	require.NoError(t, s.Load(false))

	again := NewSource(srv.URL, dir)
	require.NoError(t, again.Load(false))
	assert.Equal(t, int32(1), hits.Load(), "a fresh cache must suppress the second download")
	assert.Len(t, again.Map(), 2)
}

func TestLoad_StaleCacheFallbackOnDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleJSON))
	}))

	dir := t.TempDir()
	s := NewSource(srv.URL, dir)
	require.NoError(t, s.Load(false))
	srv.Close()

	// Force a re-download attempt against the dead server.
	broken := NewSource(srv.URL, dir)
	require.NoError(t, broken.Load(true), "skipUpdate with an existing cache must not touch the network")
	assert.Len(t, broken.Map(), 2)
}

func TestLoad_NoCacheAndDownLoadFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSource(srv.URL, t.TempDir())
	err := s.Load(false)
	assert.ErrorContains(t, err, "HTTP 500")
}

func TestParse_Invalid(t *testing.T) {
	s := NewSource("http://unused", t.TempDir())
	assert.Error(t, s.parse([]byte("not json")))
}
