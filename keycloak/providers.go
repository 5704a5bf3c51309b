package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/sync/singleflight"
)

// DiscoveryTimeout bounds one discovery request shared by concurrent callers.
const DiscoveryTimeout = 15 * time.Second

// Provider is a discovered realm.
type Provider struct {
	*oidc.Provider
	EndSessionURL string
}

// Providers caches discovery documents per issuer. Concurrent discoveries of the
// same issuer share one request.
type Providers struct {
	client *http.Client

	mu    sync.RWMutex
	cache map[string]*Provider
	sf    singleflight.Group
}

func NewProviders(client *http.Client) *Providers {
	if client == nil {
		client = http.DefaultClient
	}
	return &Providers{
		client: client,
		cache:  make(map[string]*Provider),
	}
}

// Client is the HTTP client used for every call to the provider.
func (p *Providers) Client() *http.Client {
	return p.client
}

// ClientContext attaches the provider HTTP client to ctx for go-oidc and oauth2.
func (p *Providers) ClientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, p.client)
}

func (p *Providers) Get(ctx context.Context, issuer string) (*Provider, error) {
	p.mu.RLock()
	provider, ok := p.cache[issuer]
	p.mu.RUnlock()
	if ok {
		return provider, nil
	}

	// Waiters share one discovery running on its own deadline. A caller whose
	// context ends stops waiting without cancelling it for the others.
	ch := p.sf.DoChan(issuer, func() (any, error) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DiscoveryTimeout)
		defer cancel()

		discovered, err := oidc.NewProvider(p.ClientContext(dctx), issuer)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", issuer, err)
		}

		var claims struct {
			EndSession string `json:"end_session_endpoint"`
		}
		if err := discovered.Claims(&claims); err != nil {
			return nil, fmt.Errorf("read discovery document: %w", err)
		}

		provider := &Provider{Provider: discovered, EndSessionURL: claims.EndSession}
		p.mu.Lock()
		p.cache[issuer] = provider
		p.mu.Unlock()
		return provider, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Provider), nil
	}
}

// Forget drops the cached discovery of issuer.
func (p *Providers) Forget(issuer string) {
	p.mu.Lock()
	delete(p.cache, issuer)
	p.mu.Unlock()
}
