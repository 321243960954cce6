package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = `[{"id": "c1", "name": "Diabetes", "predicates": []}]`

func newLoader() *Loader {
	return NewLoader(5*time.Second, 2, zerolog.Nop())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o644))

	doc, err := newLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, doc.Conditions, 1)
	assert.Equal(t, "Diabetes", doc.Conditions[0].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := newLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read file")
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(export))
	}))
	defer srv.Close()

	doc, err := newLoader().Load(context.Background(), srv.URL+"/export.json")
	require.NoError(t, err)
	assert.Len(t, doc.Conditions, 1)
}

func TestLoadURLRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(export))
	}))
	defer srv.Close()

	_, err := newLoader().Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLoadURLErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "not found", status: http.StatusNotFound, body: "nope", wantErr: "unexpected status"},
		{name: "empty", status: http.StatusOK, body: "", wantErr: "empty response"},
		{name: "invalid json", status: http.StatusOK, body: "{", wantErr: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newLoader().Load(context.Background(), srv.URL)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
