package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagewise/internal/config"
	"pagewise/internal/domain"
)

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("the cat\fno match\fcat again\n"), 0644))
	return path
}

func testConfig(backend string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Search.Backend = backend
	cfg.Watch.Enabled = false
	return cfg
}

func startApp(t *testing.T, cfg *config.Config, path string) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.close)
	a.start()

	require.NoError(t, a.open(context.Background(), path))
	a.docs.Wait()
	require.Eventually(t, func() bool { return a.nav.State().TotalPages == 3 }, waitFor, tick)
	return a
}

func TestSearchAcrossBackends(t *testing.T) {
	for _, tt := range []struct {
		backend string
		serving string
	}{
		{config.BackendChannel, "channel"},
		{config.BackendDirect, "direct"},
		{config.BackendScan, "scan"},
	} {
		t.Run(tt.backend, func(t *testing.T) {
			a := startApp(t, testConfig(tt.backend), writeDoc(t))

			a.bus.Publish(domain.SearchEvent{Query: "cat"})
			require.Eventually(t, func() bool { return a.search.State().Status == domain.SearchFound }, waitFor, tick)
			assert.Equal(t, domain.SearchState{Query: "cat", Status: domain.SearchFound, Current: 1, Total: 2}, a.search.State())
			assert.Equal(t, tt.serving, a.search.Serving())

			a.bus.Publish(domain.FindNextEvent{})
			require.Eventually(t, func() bool { return a.search.State().Current == 2 }, waitFor, tick)
			require.Eventually(t, func() bool { return a.nav.State().Page == 3 }, waitFor, tick, "view follows the match")

			a.bus.Publish(domain.SearchEvent{Query: ""})
			assert.Equal(t, domain.SearchCleared, a.search.State().Status)
		})
	}
}

func TestHighlightsReachTheBus(t *testing.T) {
	a := startApp(t, testConfig(config.BackendChannel), writeDoc(t))

	got := make(chan []domain.Highlight, 16)
	a.bus.Subscribe(domain.EventHighlightsChanged, func(e domain.Event) error {
		got <- e.(domain.HighlightsChangedEvent).Highlights
		return nil
	})

	a.bus.Publish(domain.SearchEvent{Query: "cat"})
	select {
	case hl := <-got:
		require.NotEmpty(t, hl)
		assert.Equal(t, "p1:0", hl[0].NodeID)
		assert.True(t, hl[0].Current)
	case <-time.After(waitFor):
		t.Fatal("no highlights published")
	}
}

func TestReloadResetsSearch(t *testing.T) {
	a := startApp(t, testConfig(config.BackendDirect), writeDoc(t))
	a.bus.Publish(domain.GoToPageEvent{Page: 2})
	a.bus.Publish(domain.SearchEvent{Query: "cat"})
	require.Equal(t, domain.SearchFound, a.search.State().Status)
	require.Equal(t, 3, a.nav.State().Page, "first match at or after page 2")

	require.NoError(t, a.docs.Reload(context.Background()))
	assert.Equal(t, domain.SearchIdle, a.search.State().Status)
	a.docs.Wait()
	require.Eventually(t, func() bool { return a.nav.State().Page == 3 }, waitFor, tick, "reload keeps the page")
}

func TestSearchOverRelay(t *testing.T) {
	srv := httptest.NewServer(newRelayHandler(config.DefaultConfig()))
	t.Cleanup(srv.Close)
	path := writeDoc(t)

	cfg := testConfig(config.BackendChannel)
	cfg.Channel.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	s, err := startSurface(context.Background(), cfg, path)
	require.NoError(t, err)
	t.Cleanup(s.close)
	s.docs.Wait()

	a := startApp(t, cfg, path)

	// Joining the relay room completes after the handshake, so resend until
	// the surface answers
	require.Eventually(t, func() bool {
		if a.search.State().Status != domain.SearchFound {
			a.bus.Publish(domain.SearchEvent{Query: "cat"})
			return false
		}
		return true
	}, waitFor, 100*time.Millisecond)

	assert.Equal(t, 2, a.search.State().Total)
	assert.Equal(t, "channel", a.search.Serving())
}

func TestDialFailureIsReported(t *testing.T) {
	cfg := testConfig(config.BackendChannel)
	cfg.Channel.URL = "ws://127.0.0.1:1"

	_, err := newApp(context.Background(), cfg)
	assert.Error(t, err)
}
