package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brainybay/assistant/internal/config"
)

const watcherBaseYAML = `
server:
  log_level: info
providers:
  textgen:
    name: gemini
    api_key: test-key
assistant:
  system_prompt: Be helpful.
`

const watcherUpdatedYAML = `
server:
  log_level: debug
providers:
  textgen:
    name: gemini
    api_key: test-key
assistant:
  system_prompt: Be extra helpful.
`

const watcherBrokenYAML = `
server:
  log_level: bananas
`

// watcherFixture owns a temp config file and the watcher polling it.
type watcherFixture struct {
	path string
	w    *config.Watcher
}

func startWatcher(t *testing.T, onChange func(old, new *config.Config)) *watcherFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	rewrite(t, path, watcherBaseYAML)

	w, err := config.NewWatcher(path, onChange, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return &watcherFixture{path: path, w: w}
}

func rewrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

// changeCounter records onChange invocations for tests that assert the
// callback stays quiet.
type changeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *changeCounter) onChange(_, _ *config.Config) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *changeCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	fx := startWatcher(t, nil)

	cfg := fx.w.Current()
	if cfg == nil {
		t.Fatal("Current() returned nil after initial load")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var gotOld, gotNew *config.Config
	changed := make(chan struct{}, 1)

	fx := startWatcher(t, func(old, new *config.Config) {
		mu.Lock()
		gotOld, gotNew = old, new
		mu.Unlock()
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	// Let one poll pass on the original file before rewriting it.
	time.Sleep(100 * time.Millisecond)
	rewrite(t, fx.path, watcherUpdatedYAML)

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked within timeout")
	}

	mu.Lock()
	defer mu.Unlock()

	if gotOld == nil || gotNew == nil {
		t.Fatal("callback received nil configs")
	}
	if gotOld.Server.LogLevel != config.LogInfo {
		t.Errorf("old log_level = %q, want %q", gotOld.Server.LogLevel, config.LogInfo)
	}
	if gotNew.Server.LogLevel != config.LogDebug {
		t.Errorf("new log_level = %q, want %q", gotNew.Server.LogLevel, config.LogDebug)
	}
	if cur := fx.w.Current(); cur.Server.LogLevel != config.LogDebug {
		t.Errorf("Current() log_level = %q, want %q", cur.Server.LogLevel, config.LogDebug)
	}
}

func TestWatcher_InvalidFileKeepsOldConfig(t *testing.T) {
	t.Parallel()

	var counter changeCounter
	fx := startWatcher(t, counter.onChange)

	time.Sleep(100 * time.Millisecond)
	rewrite(t, fx.path, watcherBrokenYAML)

	// Several poll intervals; the broken revision must never surface.
	time.Sleep(300 * time.Millisecond)

	if n := counter.count(); n != 0 {
		t.Errorf("callback fired %d times for an invalid config, want 0", n)
	}
	if cur := fx.w.Current(); cur.Server.LogLevel != config.LogInfo {
		t.Errorf("Current() log_level = %q, want the previous valid config", cur.Server.LogLevel)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/path.yaml", nil); err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	fx := startWatcher(t, nil)

	fx.w.Stop()
	fx.w.Stop()
	fx.w.Stop()
}

func TestWatcher_TouchWithoutContentChange(t *testing.T) {
	t.Parallel()

	var counter changeCounter
	fx := startWatcher(t, counter.onChange)

	// Bump the mtime without changing content.
	time.Sleep(100 * time.Millisecond)
	later := time.Now().Add(time.Second)
	if err := os.Chtimes(fx.path, later, later); err != nil {
		t.Fatalf("touch file: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	if n := counter.count(); n != 0 {
		t.Errorf("callback fired %d times for a touch-only change, want 0", n)
	}
}
