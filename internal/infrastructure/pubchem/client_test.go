package pubchem

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molscout/pkg/errors"
)

type recordedCall struct {
	operation, outcome string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordPubChemRequest(op, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{op, outcome})
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/rest/pug/", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)

	for _, bad := range []string{"ftp://pubchem", "not a url", "http://"} {
		_, err := NewClient(bad)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig, bad)
	}
}

func TestNewClient_Options(t *testing.T) {
	c, err := NewClient("https://example.org/rest/pug",
		WithTimeout(3*time.Second), WithUserAgent("test-agent"), WithLogger(nil), WithRecorder(nil))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
	assert.Equal(t, "test-agent", c.userAgent)
	assert.NotNil(t, c.logger)
	assert.NotNil(t, c.recorder)
}

func TestSubstructureCIDs(t *testing.T) {
	rec := &fakeRecorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/pug/compound/fastsubstructure/smiles/CCO/cids/JSON", r.URL.Path)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"IdentifierList":{"CID":[702,1031,263]}}`))
	}, WithRecorder(rec))

	cids, err := c.SubstructureCIDs(context.Background(), "CCO")
	require.NoError(t, err)
	assert.Equal(t, []int64{702, 1031, 263}, cids)
	assert.Equal(t, []recordedCall{{OperationSubstructure, "ok"}}, rec.calls)
}

func TestSubstructureCIDs_EscapesPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/pug/compound/fastsubstructure/smiles/C%2FC=C%2FC/cids/JSON", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"IdentifierList":{"CID":[]}}`))
	})
	cids, err := c.SubstructureCIDs(context.Background(), "C/C=C/C")
	require.NoError(t, err)
	assert.Empty(t, cids)
}

func TestSubstructureCIDs_NoIdentifierList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	cids, err := c.SubstructureCIDs(context.Background(), "CCO")
	require.NoError(t, err)
	assert.NotNil(t, cids)
	assert.Empty(t, cids)
}

func TestSubstructureCIDs_Non200IsUpstream(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest, http.StatusServiceUnavailable} {
		rec := &fakeRecorder{}
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}, WithRecorder(rec))
		_, err := c.SubstructureCIDs(context.Background(), "CCO")
		require.Error(t, err)
		assert.True(t, errors.IsUpstream(err))
		require.Len(t, rec.calls, 1)
		assert.Contains(t, rec.calls[0].outcome, "status_")
	}
}

func TestSubstructureCIDs_BadJSONIsUpstream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	_, err := c.SubstructureCIDs(context.Background(), "CCO")
	assert.True(t, errors.IsUpstream(err))
}

func TestSubstructureCIDs_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.SubstructureCIDs(context.Background(), "CCO")
	assert.True(t, errors.IsUpstream(err))
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestSubstructureCIDs_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"IdentifierList":{"CID":[1]}}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SubstructureCIDs(ctx, "CCO")
	assert.Error(t, err)
}

func TestCanonicalSMILES(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/pug/compound/cid/702/property/CanonicalSMILES/JSON", r.URL.Path)
		_, _ = w.Write([]byte(`{"PropertyTable":{"Properties":[{"CID":702,"CanonicalSMILES":"CCO"}]}}`))
	})
	smiles, err := c.CanonicalSMILES(context.Background(), 702)
	require.NoError(t, err)
	assert.Equal(t, "CCO", smiles)
}

func TestCanonicalSMILES_ConnectivityFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"PropertyTable":{"Properties":[{"CID":263,"ConnectivitySMILES":"CCCCO"}]}}`))
	})
	smiles, err := c.CanonicalSMILES(context.Background(), 263)
	require.NoError(t, err)
	assert.Equal(t, "CCCCO", smiles)
}

func TestCanonicalSMILES_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"no properties": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"PropertyTable":{"Properties":[]}}`))
		},
		"empty smiles": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"PropertyTable":{"Properties":[{"CID":1}]}}`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			_, err := c.CanonicalSMILES(context.Background(), 1)
			assert.Error(t, err)
		})
	}
}
