// Package location gives the authentication code a browser-like view of the current
// navigation: read the URL, rewrite the visible URL in place, or navigate away.
package location

import (
	"net/http"
	"net/url"
)

// Location is the address bar of the page currently being served.
type Location interface {
	// URL returns a copy of the current absolute URL.
	URL() *url.URL
	// ReplaceState rewrites the visible URL without a page load.
	ReplaceState(target string)
	// Navigate performs a full navigation to target.
	Navigate(target string)
}

// HTTP is a Location bound to one request/response pair. ReplaceState is delivered
// to the browser through the htmx HX-Replace-Url header and through Replaced, which
// pages render as a history.replaceState call. Navigate answers with a redirect.
type HTTP struct {
	w         http.ResponseWriter
	r         *http.Request
	current   *url.URL
	replaced  string
	navigated string
}

var _ Location = (*HTTP)(nil)

func NewHTTP(w http.ResponseWriter, r *http.Request) *HTTP {
	current := *r.URL
	current.Scheme = scheme(r)
	current.Host = r.Host
	return &HTTP{w: w, r: r, current: &current}
}

func (l *HTTP) URL() *url.URL {
	u := *l.current
	return &u
}

func (l *HTTP) ReplaceState(target string) {
	ref, err := url.Parse(target)
	if err != nil {
		return
	}
	l.current = l.current.ResolveReference(ref)
	l.replaced = target
	l.w.Header().Set("HX-Replace-Url", target)
}

// Navigate writes the redirect. Only the first navigation of a request takes effect.
func (l *HTTP) Navigate(target string) {
	if l.navigated != "" {
		return
	}
	l.navigated = target
	if IsHTMX(l.r) {
		l.w.Header().Set("HX-Redirect", target)
		l.w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(l.w, l.r, target, http.StatusSeeOther)
}

// Navigated returns the navigation target, if a navigation happened.
func (l *HTTP) Navigated() (string, bool) {
	return l.navigated, l.navigated != ""
}

// Replaced returns the URL the page must show, if it was rewritten.
func (l *HTTP) Replaced() (string, bool) {
	return l.replaced, l.replaced != ""
}

// IsHTMX checks if the request was initiated by htmx
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if s := r.Header.Get("X-Forwarded-Proto"); s != "" {
		return s
	}
	return "http"
}
