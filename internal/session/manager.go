// Package session owns the login/logout lifecycle and the
// forced-logout flag that keeps dependent queries from hammering an
// invalid session.
package session

import (
	"context"
	"errors"

	"github.com/nhle/taskflow/internal/api"
	"github.com/nhle/taskflow/internal/cache"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
)

// ErrLoggedOut is returned for profile reads while the forced-logout
// flag is set; callers should route to login instead of retrying.
var ErrLoggedOut = errors.New("logged out")

// Manager coordinates authentication calls with the cache and the
// local state store.
type Manager struct {
	api   *api.Client
	cache *cache.Cache
	store store.Store
}

// New creates a Manager.
func New(apiClient *api.Client, c *cache.Cache, s store.Store) *Manager {
	return &Manager{api: apiClient, cache: c, store: s}
}

// Login authenticates and primes the profile cache. A successful login
// clears the forced-logout flag, re-enabling dependent queries.
func (m *Manager) Login(ctx context.Context, input model.LoginInput) (model.User, error) {
	resp, err := m.api.Login(ctx, input)
	if err != nil {
		return model.User{}, err
	}
	if err := m.store.SetForcedLogout(false); err != nil {
		return model.User{}, err
	}
	m.cache.Set(cache.ProfileKey(), resp.User)
	return resp.User, nil
}

// Register creates an account, which also logs it in.
func (m *Manager) Register(ctx context.Context, input model.RegisterInput) (model.User, error) {
	resp, err := m.api.Register(ctx, input)
	if err != nil {
		return model.User{}, err
	}
	if err := m.store.SetForcedLogout(false); err != nil {
		return model.User{}, err
	}
	m.cache.Set(cache.ProfileKey(), resp.User)
	return resp.User, nil
}

// Logout ends the server session, sets the forced-logout flag, and
// clears the cache; nothing cached belongs to the next user. The flag
// is set even when the server call fails, since the caller's intent is
// to be logged out.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.api.Logout(ctx)
	if flagErr := m.store.SetForcedLogout(true); flagErr != nil && err == nil {
		err = flagErr
	}
	m.cache.Clear()
	return err
}

// Profile returns the current user, from cache when fresh. While the
// forced-logout flag is set it returns ErrLoggedOut without touching
// the network; a 401 from the backend sets the flag, so an expired
// session stops retrying until the next login.
func (m *Manager) Profile(ctx context.Context) (model.User, error) {
	forced, err := m.store.ForcedLogout()
	if err != nil {
		return model.User{}, err
	}
	if forced {
		return model.User{}, ErrLoggedOut
	}

	data, err := m.cache.Fetch(ctx, cache.ProfileKey(), func(ctx context.Context) (interface{}, error) {
		return m.api.Profile(ctx)
	})
	if err != nil {
		if api.IsAuthError(err) {
			_ = m.store.SetForcedLogout(true)
		}
		return model.User{}, err
	}

	user, ok := data.(model.User)
	if !ok {
		return model.User{}, ErrLoggedOut
	}
	return user, nil
}
