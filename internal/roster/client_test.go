package roster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/protocol"
)

func TestFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/clients", r.URL.Path)
		require.Equal(t, "team-chat", r.URL.Query().Get("room"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"nickname":"Alice","color":"#ff0000"},{"nickname":"Bob"}]`))
	}))
	defer ts.Close()

	entries, err := Fetch(context.Background(), NewClient(ts.URL), "team-chat")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, protocol.RosterEntry{Nickname: "Alice", Color: "#ff0000"}, entries[0])
	assert.Equal(t, []string{"Alice", "Bob"}, Nicknames(entries))
}

func TestFetchEmptyRoom(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	entries, err := Fetch(context.Background(), NewClient(ts.URL), "general")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := Fetch(context.Background(), NewClient(ts.URL), "general")
	assert.Error(t, err)
}

func TestFetchBadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	_, err := Fetch(context.Background(), NewClient(ts.URL), "general")
	assert.Error(t, err)
}

func TestFetchUnreachableServer(t *testing.T) {
	_, err := Fetch(context.Background(), NewClient("http://127.0.0.1:1"), "general")
	assert.Error(t, err)
}
