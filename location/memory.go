package location

import "net/url"

// Memory is a Location that only records what happened. It backs command line
// checks and tests.
type Memory struct {
	current    *url.URL
	Replaced   []string
	Navigation []string
}

var _ Location = (*Memory)(nil)

func NewMemory(rawURL string) (*Memory, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Memory{current: u}, nil
}

func (m *Memory) URL() *url.URL {
	u := *m.current
	return &u
}

func (m *Memory) ReplaceState(target string) {
	ref, err := url.Parse(target)
	if err != nil {
		return
	}
	m.current = m.current.ResolveReference(ref)
	m.Replaced = append(m.Replaced, target)
}

func (m *Memory) Navigate(target string) {
	m.Navigation = append(m.Navigation, target)
}

// LastNavigation returns the most recent navigation target.
func (m *Memory) LastNavigation() string {
	if len(m.Navigation) == 0 {
		return ""
	}
	return m.Navigation[len(m.Navigation)-1]
}
