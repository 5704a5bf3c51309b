package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-dashboard-gateway/internal/errors"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/rs/zerolog/log"
)

// Store opens sessions by id.
type Store struct {
	repo          Repo
	sealer        *Sealer
	maxAge        time.Duration
	rememberMeAge time.Duration
	now           func() time.Time
}

type Option func(*Store)

// WithRememberMeAge sets the lifetime of sessions that asked to be remembered.
func WithRememberMeAge(d time.Duration) Option {
	return func(s *Store) { s.rememberMeAge = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(repo Repo, sealer *Sealer, maxAge time.Duration, opts ...Option) *Store {
	s := &Store{
		repo:          repo,
		sealer:        sealer,
		maxAge:        maxAge,
		rememberMeAge: maxAge,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the session with the given id. An empty, unknown or expired id
// yields a fresh anonymous session that is stored on its first mutation.
func (s *Store) Open(ctx context.Context, id string) (*Handle, error) {
	if id != "" {
		rec, err := s.repo.Get(ctx, id)
		switch {
		case err == nil && s.now().Before(rec.ExpiresAt):
			return s.handle(rec), nil
		case err == nil, errors.Is(err, errors.ErrSessionNotFound):
		default:
			return nil, errors.Wrapf(err, "load session")
		}
	}

	now := s.now()
	return &Handle{
		store: s,
		isNew: true,
		rec: Record{
			ID:        uuid.NewString(),
			State:     State{Roles: []string{}, UpdatedAt: now},
			CreatedAt: now,
		},
	}, nil
}

func (s *Store) handle(rec Record) *Handle {
	h := &Handle{store: s, rec: rec}
	if len(rec.SealedTokens) == 0 {
		return h
	}

	tokens, err := s.openTokens(rec)
	if err != nil {
		log.Warn().Err(err).Str("session", rec.ID).Msg("discarding session tokens that cannot be opened")
		h.rec.SealedTokens = nil
		if !h.rec.State.Offline {
			h.rec.State = State{Roles: []string{}, UpdatedAt: rec.State.UpdatedAt}
		}
		return h
	}
	h.tokens = tokens
	return h
}

func (s *Store) openTokens(rec Record) (*keycloak.TokenSet, error) {
	plaintext, err := s.sealer.Open(rec.SealedTokens, []byte(rec.ID))
	if err != nil {
		return nil, err
	}
	var tokens keycloak.TokenSet
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Handle is one open session. Reads go through Get; writes only through the
// named mutators, each of which persists the session.
type Handle struct {
	store  *Store
	mu     sync.Mutex
	rec    Record
	tokens *keycloak.TokenSet
	isNew  bool
	onSave []func(*Handle)
}

var _ keycloak.TokenStore = (*Handle)(nil)

func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rec.ID
}

// IsNew reports whether the session has never been stored.
func (h *Handle) IsNew() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isNew
}

// MaxAge is how long the session lives from its last save.
func (h *Handle) MaxAge() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxAge()
}

func (h *Handle) maxAge() time.Duration {
	if h.rec.State.RememberMe {
		return h.store.rememberMeAge
	}
	return h.store.maxAge
}

// OnSave registers fn to run after every save, e.g. to refresh the session cookie.
func (h *Handle) OnSave(fn func(*Handle)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSave = append(h.onSave, fn)
}

// Get returns a copy of the current state.
func (h *Handle) Get() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	state := h.rec.State.clone()
	if h.tokens != nil {
		state.Token = h.tokens.AccessToken
	}
	return state
}

func (h *Handle) BeginLoading(ctx context.Context) error {
	return h.mutate(ctx, func(s *State) error {
		s.IsLoading = true
		s.Error = ""
		return nil
	})
}

func (h *Handle) StopLoading(ctx context.Context) error {
	return h.mutate(ctx, func(s *State) error {
		s.IsLoading = false
		return nil
	})
}

// LoginSucceeded marks the session signed in. A live session must carry a token.
func (h *Handle) LoginSucceeded(ctx context.Context, login Login) error {
	if !login.Offline && login.Token == "" {
		return errors.ErrTokenRequired
	}
	// Live sessions were rotated when the provider tokens arrived.
	if login.Offline && !h.Get().IsAuthenticated {
		if err := h.Rotate(ctx); err != nil {
			return err
		}
	}
	return h.mutate(ctx, func(s *State) error {
		if login.Token != "" && (h.tokens == nil || h.tokens.AccessToken != login.Token) {
			h.tokens = &keycloak.TokenSet{AccessToken: login.Token}
		}
		if login.Offline {
			h.tokens = nil
		}
		*s = State{
			IsAuthenticated: true,
			Offline:         login.Offline,
			Profile:         login.Profile,
			Roles:           rolesOrEmpty(login.Roles),
			RememberMe:      login.RememberMe || s.RememberMe,
		}
		return nil
	})
}

func (h *Handle) ProfileLoaded(ctx context.Context, profile *keycloak.UserProfile, roles []string) error {
	return h.mutate(ctx, func(s *State) error {
		s.Profile = profile
		s.Roles = rolesOrEmpty(roles)
		return nil
	})
}

// TokenRefreshed records a refreshed access token.
func (h *Handle) TokenRefreshed(ctx context.Context, token string) error {
	return h.mutate(ctx, func(s *State) error {
		if token == "" && !s.Offline {
			return errors.ErrTokenRequired
		}
		if token != "" {
			if h.tokens == nil {
				h.tokens = &keycloak.TokenSet{}
			}
			h.tokens.AccessToken = token
		}
		s.Error = ""
		return nil
	})
}

// Failed records a user facing error and ends loading.
func (h *Handle) Failed(ctx context.Context, message string) error {
	return h.mutate(ctx, func(s *State) error {
		s.IsLoading = false
		s.Error = message
		return nil
	})
}

// Reset signs the session out and removes it from the repo.
func (h *Handle) Reset(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.store.now()
	h.tokens = nil
	h.rec.SealedTokens = nil
	h.rec.State = State{Roles: []string{}, UpdatedAt: now}
	if h.isNew {
		return nil
	}
	h.isNew = true
	return h.store.repo.Delete(ctx, h.rec.ID)
}

// Rotate moves the session to a fresh id and drops the record stored under the
// old one. OnSave hooks see the new id.
func (h *Handle) Rotate(ctx context.Context) error {
	h.mu.Lock()
	oldID, stored := h.rec.ID, !h.isNew
	h.rec.ID = uuid.NewString()
	h.rec.CreatedAt = h.store.now()
	h.isNew = true
	h.mu.Unlock()

	if stored {
		if err := h.store.repo.Delete(ctx, oldID); err != nil {
			return errors.Wrapf(err, "delete rotated session")
		}
	}
	return h.mutate(ctx, func(*State) error { return nil })
}

// Tokens returns the provider tokens of the session.
func (h *Handle) Tokens() *keycloak.TokenSet {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tokens == nil {
		return nil
	}
	tokens := *h.tokens
	return &tokens
}

func (h *Handle) SaveTokens(ctx context.Context, tokens *keycloak.TokenSet) error {
	if tokens == nil || tokens.AccessToken == "" {
		return errors.ErrTokenRequired
	}
	return h.mutate(ctx, func(*State) error {
		copied := *tokens
		h.tokens = &copied
		return nil
	})
}

// ClearTokens drops the provider tokens. A live session without tokens is no
// longer signed in.
func (h *Handle) ClearTokens(ctx context.Context) error {
	return h.mutate(ctx, func(s *State) error {
		h.tokens = nil
		if !s.Offline {
			*s = State{Roles: []string{}, RememberMe: s.RememberMe}
		}
		return nil
	})
}

func (h *Handle) mutate(ctx context.Context, fn func(*State) error) error {
	h.mu.Lock()

	state := h.rec.State.clone()
	tokens := h.tokens
	if err := fn(&state); err != nil {
		h.tokens = tokens
		h.mu.Unlock()
		return err
	}
	state.UpdatedAt = h.store.now()

	rec := h.rec
	rec.State = state
	rec.SealedTokens = nil
	if h.tokens != nil {
		sealed, err := h.sealTokens(rec.ID)
		if err != nil {
			h.tokens = tokens
			h.mu.Unlock()
			return err
		}
		rec.SealedTokens = sealed
	}
	if rec.State.RememberMe {
		rec.ExpiresAt = state.UpdatedAt.Add(h.store.rememberMeAge)
	} else {
		rec.ExpiresAt = state.UpdatedAt.Add(h.store.maxAge)
	}

	if err := h.store.repo.Upsert(ctx, rec); err != nil {
		h.tokens = tokens
		h.mu.Unlock()
		return errors.Wrapf(err, "save session")
	}
	h.rec = rec
	h.isNew = false
	hooks := append([]func(*Handle){}, h.onSave...)
	h.mu.Unlock()

	for _, fn := range hooks {
		fn(h)
	}
	return nil
}

func (h *Handle) sealTokens(id string) ([]byte, error) {
	plaintext, err := json.Marshal(h.tokens)
	if err != nil {
		return nil, err
	}
	return h.store.sealer.Seal(plaintext, []byte(id))
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return append([]string(nil), roles...)
}
