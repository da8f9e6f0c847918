package localcalling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
)

const localPrefixXML = `<?xml version="1.0" encoding="UTF-8"?>
<root>
  <lca-data>
    <prefix><npa>816</npa><nxx>200</nxx></prefix>
    <prefix><npa>816</npa><nxx>201</nxx></prefix>
    <prefix><npa> 913 </npa><nxx>555</nxx></prefix>
  </lca-data>
</root>`

const prefixXML = `<?xml version="1.0" encoding="UTF-8"?>
<root>
  <prefixdata><npa>417</npa><nxx>555</nxx><rc>SPRINGFIELD</rc></prefixdata>
  <prefixdata><npa>417</npa><nxx>556</nxx><rc>SPRINGFIELD</rc></prefixdata>
</root>`

func newTestClient(t *testing.T, server *httptest.Server, retries int) *Client {
	t.Helper()
	return NewClient(ClientConfig{
		BaseURL:           server.URL + "/",
		RequestsPerSecond: 1000,
		Burst:             10,
		MaxRetries:        retries,
		RetryBackoff:      time.Millisecond,
		UserAgent:         "dialplan-test",
	}, zaptest.NewLogger(t))
}

func TestClient_LocalPrefixes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xmllocalprefix.php", r.URL.Path)
		assert.Equal(t, "816", r.URL.Query().Get("npa"))
		assert.Equal(t, "555", r.URL.Query().Get("nxx"))
		assert.Equal(t, "dialplan-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(localPrefixXML))
	}))
	defer server.Close()

	prefixes, err := newTestClient(t, server, 0).LocalPrefixes(context.Background(), "816", "555")
	require.NoError(t, err)
	assert.Equal(t, []Prefix{
		{NPA: "816", NXX: "200"},
		{NPA: "816", NXX: "201"},
		{NPA: "913", NXX: "555"},
	}, prefixes)
}

func TestClient_Prefixes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xmlprefix.php", r.URL.Path)
		assert.Equal(t, "417", r.URL.Query().Get("npa"))
		w.Write([]byte(prefixXML))
	}))
	defer server.Close()

	prefixes, err := newTestClient(t, server, 0).Prefixes(context.Background(), "417")
	require.NoError(t, err)
	assert.Equal(t, []Prefix{{NPA: "417", NXX: "555"}, {NPA: "417", NXX: "556"}}, prefixes)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(prefixXML))
	}))
	defer server.Close()

	prefixes, err := newTestClient(t, server, 3).Prefixes(context.Background(), "417")
	require.NoError(t, err)
	assert.Len(t, prefixes, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server, 2).Prefixes(context.Background(), "417")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
	assert.Equal(t, errors.ExitExternal, errors.GetExitCode(err))
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(t, server, 3).LocalPrefixes(context.Background(), "816", "555")
	require.Error(t, err)
	assert.False(t, errors.IsRetryable(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_BadXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<root><lca-data><prefix>"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server, 3).LocalPrefixes(context.Background(), "816", "555")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
	assert.False(t, errors.IsRetryable(err))
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, server, 3).Prefixes(ctx, "417")
	assert.ErrorIs(t, err, context.Canceled)
}
