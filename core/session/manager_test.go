package session

import (
	"context"
	"io/ioutil"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/subdesk/subdesk/core"
	logsvc "github.com/subdesk/subdesk/services/logger"
)

func testLogger() core.Logger {
	return logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0), &core.Config{})
}

type memStore struct {
	mu         sync.Mutex
	credential string
}

func (st *memStore) Save(credential string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.credential = credential
	return nil
}

func (st *memStore) Load() (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.credential == "" {
		return "", ErrNoCredential
	}
	return st.credential, nil
}

func (st *memStore) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.credential = ""
	return nil
}

type fakeExchanger struct {
	token string
	err   error
}

func (e *fakeExchanger) ExchangeToken(ctx context.Context, email, secret string) (string, error) {
	return e.token, e.err
}

type fakeRefresher struct {
	mu       sync.Mutex
	refreshs int
	resets   int
}

func (r *fakeRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshs++
	return nil
}

func (r *fakeRefresher) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *fakeRefresher) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshs, r.resets
}

func setup(pollInterval time.Duration) (*Manager, *memStore, *fakeExchanger, *fakeRefresher) {
	store := &memStore{}
	exchanger := &fakeExchanger{token: "tok123"}
	refresher := &fakeRefresher{}
	conf := &core.Config{PollInterval: pollInterval, RequestTimeout: time.Second}
	return NewManager(conf, store, exchanger, refresher, testLogger()), store, exchanger, refresher
}

func Test_manager_login(t *testing.T) {
	m, store, _, _ := setup(time.Minute)
	assert.False(t, m.Active())

	assert.NoError(t, m.Login(context.Background(), "admin@school.edu", "secret"))
	assert.True(t, m.Active())
	credential, err := store.Load()
	assert.NoError(t, err)
	assert.Equal(t, "tok123", credential)
}

func Test_manager_loginFailureClearsStore(t *testing.T) {
	m, store, exchanger, _ := setup(time.Minute)
	_ = store.Save("old-token")
	exchanger.err = errors.New("bad credentials")

	err := m.Login(context.Background(), "admin@school.edu", "secret")
	assert.Error(t, err)
	// no half-logged-in state: the old credential must be gone too
	assert.False(t, m.Active())
}

func Test_manager_logoutIsLocal(t *testing.T) {
	m, _, _, refresher := setup(time.Minute)
	if err := m.Login(context.Background(), "admin@school.edu", "secret"); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	assert.NoError(t, m.Logout())
	assert.False(t, m.Active())
	_, resets := refresher.counts()
	assert.Equal(t, 1, resets, "logout must reset the snapshot")
}

func Test_manager_pollingLifecycle(t *testing.T) {
	m, _, _, refresher := setup(time.Second)
	assert.NoError(t, m.StartPolling(context.Background()))
	defer m.StopPolling()

	refreshs, _ := refresher.counts()
	assert.Equal(t, 1, refreshs, "StartPolling runs one refresh immediately")

	// starting again while polling is a no-op
	assert.NoError(t, m.StartPolling(context.Background()))
	refreshs, _ = refresher.counts()
	assert.Equal(t, 1, refreshs)

	// the recurring job fires on the interval
	deadline := time.After(3 * time.Second)
	for {
		refreshs, _ = refresher.counts()
		if refreshs >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("recurring refresh never fired")
		case <-time.After(50 * time.Millisecond):
		}
	}

	m.StopPolling()
	refreshs, _ = refresher.counts()
	time.Sleep(1500 * time.Millisecond)
	after, _ := refresher.counts()
	assert.LessOrEqual(t, after, refreshs+1, "no new polls after StopPolling")
}

func Test_manager_handleInvalidated(t *testing.T) {
	m, _, _, refresher := setup(time.Minute)
	if err := m.StartPolling(context.Background()); err != nil {
		t.Fatalf("StartPolling() failed: %v", err)
	}

	var endedNotified bool
	m.OnEnded(func() { endedNotified = true })
	m.HandleInvalidated()

	assert.True(t, endedNotified)
	_, resets := refresher.counts()
	assert.Equal(t, 1, resets, "invalidation must reset the snapshot")

	// polling can be restarted by the next login
	assert.NoError(t, m.StartPolling(context.Background()))
	m.StopPolling()
}
