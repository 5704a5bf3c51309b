package sdkfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
)

// Transport answers every call with the configured response and records the requests.
type Transport struct {
	mu       sync.Mutex
	Response keycloak.Response
	Err      error
	Requests []Request
}

type Request struct {
	Method string
	URL    string
	Body   any
}

var _ keycloak.Transport = (*Transport)(nil)

func (t *Transport) PostJSON(_ context.Context, url string, body any) (keycloak.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Requests = append(t.Requests, Request{Method: "POST", URL: url, Body: body})
	return t.Response, t.Err
}

func (t *Transport) Get(_ context.Context, url string) (keycloak.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Requests = append(t.Requests, Request{Method: "GET", URL: url})
	return t.Response, t.Err
}

// RequestCount returns the number of calls made through the transport.
func (t *Transport) RequestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Requests)
}
