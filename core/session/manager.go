package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/subdesk/subdesk/core"
)

type (
	// TokenExchanger performs the pre-session credential exchange.
	TokenExchanger interface {
		ExchangeToken(ctx context.Context, email, secret string) (string, error)
	}

	// Refresher is the data synchronizer slice the lifecycle owns.
	Refresher interface {
		Refresh(ctx context.Context) error
		Reset()
	}

	// Manager is the process-wide session-lifecycle object. It owns the
	// credential's set/clear transitions and the single recurring refresh job
	// tied to the active session, so no workflow has to manage either.
	Manager struct {
		store     Store
		exchanger TokenExchanger
		refresher Refresher
		log       core.Logger

		pollInterval   time.Duration
		requestTimeout time.Duration

		mu      sync.Mutex
		cron    *cron.Cron
		onEnded func()
	}
)

func NewManager(conf *core.Config, store Store, exchanger TokenExchanger, refresher Refresher, log core.Logger) *Manager {
	return &Manager{
		store:          store,
		exchanger:      exchanger,
		refresher:      refresher,
		log:            log,
		pollInterval:   conf.PollInterval,
		requestTimeout: conf.RequestTimeout,
	}
}

// OnEnded registers a callback fired when the session ends for any reason
// other than an explicit Logout (i.e. server-side invalidation). The console
// uses it to fall back to the unauthenticated view.
func (m *Manager) OnEnded(fn func()) {
	m.mu.Lock()
	m.onEnded = fn
	m.mu.Unlock()
}

// Login exchanges the fixed identity for an access token and stores it.
// Either a valid credential ends up stored or none does: any failure along
// the way clears the store so no half-logged-in state survives.
func (m *Manager) Login(ctx context.Context, email, secret string) error {
	token, err := m.exchanger.ExchangeToken(ctx, email, secret)
	if err != nil {
		if cerr := m.store.Clear(); cerr != nil {
			m.log.Error("clearing credential after failed login", cerr)
		}
		return errors.Wrap(err, ErrLoginFailed.Error())
	}
	if err = m.store.Save(token); err != nil {
		if cerr := m.store.Clear(); cerr != nil {
			m.log.Error("clearing credential after failed save", cerr)
		}
		return errors.Wrap(err, "storing credential")
	}
	m.log.Info(fmt.Sprintf("session started for %s", email))
	return nil
}

// Logout ends the session locally: it never calls the backend. The polling
// job is cancelled, the credential cleared and the snapshot reset.
func (m *Manager) Logout() error {
	m.StopPolling()
	m.refresher.Reset()
	if err := m.store.Clear(); err != nil {
		return errors.Wrap(err, "clearing credential")
	}
	m.log.Info("session ended (logout)")
	return nil
}

// Active reports whether a credential is stored. Presence means "logged in"
// for the views; only the backend can tell whether it is still valid.
func (m *Manager) Active() bool {
	_, err := m.store.Load()
	return err == nil
}

// StartPolling schedules the recurring refresh for the lifetime of the active
// session and runs one refresh immediately.
func (m *Manager) StartPolling(ctx context.Context) error {
	m.mu.Lock()
	if m.cron != nil {
		m.mu.Unlock()
		return nil // already polling
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", m.pollInterval), m.poll); err != nil {
		m.mu.Unlock()
		return errors.Wrap(err, "scheduling refresh job")
	}
	m.cron = c
	m.mu.Unlock()

	c.Start()
	return m.refresher.Refresh(ctx)
}

// StopPolling cancels the recurring refresh, if scheduled.
func (m *Manager) StopPolling() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// HandleInvalidated is wired as the gateway's unauthorized hook. The
// credential is already cleared by then; this performs the explicit
// "session ended" reset that replaces a browser client's hard reload.
func (m *Manager) HandleInvalidated() {
	m.StopPolling()
	m.refresher.Reset()
	m.log.Warn("session ended (invalidated by server)")

	m.mu.Lock()
	fn := m.onEnded
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout)
	defer cancel()
	if err := m.refresher.Refresh(ctx); err != nil {
		m.log.Warn("scheduled refresh failed", err)
	}
}
