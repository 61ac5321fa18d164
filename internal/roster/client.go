// Package roster implements the HTTP query for the set of clients
// currently connected to a room.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parley-chat/parley/internal/protocol"
)

// NewClient provides an http.Client for roster requests to the chat server.
func NewClient(baseURL string) *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &transport{
			BaseURL:               baseURL,
			MaxIdleConns:          10,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
		},
	}
}

// transport allows custom attributes to be added to each HTTP request sent
// by an http.Client that uses this transport
type transport struct {
	BaseURL      string
	MaxIdleConns int
	IdleConnTimeout,
	TLSHandshakeTimeout,
	ResponseHeaderTimeout time.Duration
}

// RoundTrip adds upon the normal http.Transport.RoundTrip() behavior to
// prepend the chat server's base url to each request.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	baseURL := strings.TrimSuffix(t.BaseURL, "/")
	path := "/" + strings.TrimPrefix(req.URL.String(), "/")
	newURL, err := req.URL.Parse(baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("error building request url: %w", err)
	}
	req.URL = newURL
	log.Debug().Msgf("roster request to chat server: %s", newURL)
	return http.DefaultTransport.RoundTrip(req)
}

// Fetch queries GET /clients for the given room and returns the entries
// reported by the server. A nil slice with nil error means an empty room.
func Fetch(ctx context.Context, client *http.Client, room string) ([]protocol.RosterEntry, error) {
	target := "/clients?room=" + url.QueryEscape(room)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("error building roster request: %w", err)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster request error: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster request failed with status %d", res.StatusCode)
	}

	var entries []protocol.RosterEntry
	if err := json.NewDecoder(res.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("roster decode error: %w", err)
	}
	return entries, nil
}

// Nicknames extracts just the nickname column, for availability checks.
func Nicknames(entries []protocol.RosterEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Nickname)
	}
	return names
}
