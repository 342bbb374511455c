// Package taskflow is the client-side synchronization layer for the
// TaskFlow backend. It assembles the remote data cache, mutation
// coordinator, push listener, unread aggregator, and local state store
// into one explicitly constructed Client; rendering is someone else's
// job.
package taskflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/taskflow/internal/api"
	"github.com/nhle/taskflow/internal/cache"
	"github.com/nhle/taskflow/internal/credential"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/mutate"
	"github.com/nhle/taskflow/internal/push"
	"github.com/nhle/taskflow/internal/session"
	"github.com/nhle/taskflow/internal/store"
	bgsync "github.com/nhle/taskflow/internal/sync"
	"github.com/nhle/taskflow/internal/unread"
)

// Client is the assembled synchronization layer. All fields are wired
// against the same cache and state store, so every view reading
// through the Client observes one consistent projection of the
// backend.
type Client struct {
	Config *model.AppConfig

	API       *api.Client
	Cache     *cache.Cache
	Store     store.Store
	Session   *session.Manager
	Mutations *mutate.Coordinator
	Push      *push.Listener
	Unread    *unread.Aggregator
	Refresher *bgsync.Refresher
}

// options collects construction overrides.
type options struct {
	store       store.Store
	credentials api.CredentialStore
}

// Option configures New.
type Option func(*options)

// WithStore substitutes the local state store; tests use this to run
// against an in-memory store.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithCredentialStore substitutes the session credential store. Pass
// nil to disable session persistence entirely.
func WithCredentialStore(cs api.CredentialStore) Option {
	return func(o *options) {
		o.credentials = cs
	}
}

// New builds a Client from cfg. A nil cfg loads the configuration at
// the default path. By default the state store is SQLite at
// cfg.StatePath and the session cookie persists via the OS keyring.
func New(cfg *model.AppConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		loaded, err := model.LoadConfig(model.DefaultConfigPath())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	o := &options{credentials: credential.NewStore()}
	for _, opt := range opts {
		opt(o)
	}

	st := o.store
	if st == nil {
		if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
		sqlite, err := store.NewSQLiteStore(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		st = sqlite
	}

	var apiOpts []api.Option
	if o.credentials != nil {
		apiOpts = append(apiOpts, api.WithCredentialStore(o.credentials))
	}
	apiClient, err := api.NewClient(cfg.APIBaseURL, apiOpts...)
	if err != nil {
		st.Close()
		return nil, err
	}

	c := cache.New()
	client := &Client{
		Config:    cfg,
		API:       apiClient,
		Cache:     c,
		Store:     st,
		Session:   session.New(apiClient, c, st),
		Mutations: mutate.New(apiClient, c),
		Push:      push.New(c, cfg.SocketURL),
		Unread:    unread.New(c, st),
		Refresher: bgsync.New(apiClient, c, st, time.Duration(cfg.MessagePollSec)*time.Second),
	}
	return client, nil
}

// Tasks reads a filtered task list through the cache.
func (c *Client) Tasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	data, err := c.Cache.Fetch(ctx, cache.TasksKey(filter), func(ctx context.Context) (interface{}, error) {
		return c.API.ListTasks(ctx, filter)
	})
	tasks, _ := data.([]model.Task)
	return tasks, err
}

// Teams reads the current user's team list through the cache.
func (c *Client) Teams(ctx context.Context) ([]model.Team, error) {
	data, err := c.Cache.Fetch(ctx, cache.TeamsKey(), func(ctx context.Context) (interface{}, error) {
		return c.API.ListTeams(ctx)
	})
	teams, _ := data.([]model.Team)
	return teams, err
}

// TeamMembers reads a team's membership list through the cache.
func (c *Client) TeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	data, err := c.Cache.Fetch(ctx, cache.TeamMembersKey(teamID), func(ctx context.Context) (interface{}, error) {
		return c.API.ListTeamMembers(ctx, teamID)
	})
	members, _ := data.([]model.TeamMember)
	return members, err
}

// TeamMessages reads a team's message list through the cache.
func (c *Client) TeamMessages(ctx context.Context, teamID string) ([]model.Message, error) {
	data, err := c.Cache.Fetch(ctx, cache.TeamMessagesKey(teamID), func(ctx context.Context) (interface{}, error) {
		return c.API.ListMessages(ctx, teamID)
	})
	messages, _ := data.([]model.Message)
	return messages, err
}

// Profile reads the current user through the session manager, honoring
// the forced-logout flag.
func (c *Client) Profile(ctx context.Context) (model.User, error) {
	return c.Session.Profile(ctx)
}

// Close tears down background work and the state store.
func (c *Client) Close() error {
	c.Push.Close()
	c.Unread.Close()
	c.Refresher.Stop()
	return c.Store.Close()
}
