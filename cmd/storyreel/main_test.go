package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/colsephiroth/storyreel/client"
	"github.com/colsephiroth/storyreel/internal/scenecache"
	"github.com/colsephiroth/storyreel/server"
)

type cliTestEnv struct {
	backend    *server.Backend
	configPath string
	cachePath  string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	gen := server.NewMockGenerator(
		server.WithDelay(10*time.Millisecond, 0),
		server.WithFailureRate(0),
		server.WithClips("https://cdn.test/clip.mp4"),
	)
	backend := server.NewBackend(server.WithGenerator(gen), server.WithURLLag(20*time.Millisecond))
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(func() {
		srv.Close()
		backend.Close()
	})

	base := t.TempDir()
	cachePath := filepath.Join(base, "cache", "scenes.db")
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`
[api]
base_url = %q

[polling]
first_poll_ms = 5
queued_ms = 5
in_progress_ms = 5
completed_wait_ms = 5
network_error_base_ms = 20
max_result_wait_ms = 5000

[cache]
path = %q

[logging]
level = "error"
format = "json"
`, srv.URL+"/", cachePath)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{backend: backend, configPath: configPath, cachePath: cachePath, baseDir: base}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("storyreel %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCLIStoryFlow(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "projects", "create", "Night", "bus")
	if !strings.Contains(out, "Created project Night bus") {
		t.Fatalf("unexpected create output %q", out)
	}
	projects := env.backend.Projects()
	if len(projects) != 1 {
		t.Fatalf("expected one project, got %d", len(projects))
	}
	projectID := projects[0].ID

	out = env.mustRun(t, "generate", projectID, "a", "bus", "at", "night")
	if !strings.Contains(out, "Video ready: https://cdn.test/clip.mp4") {
		t.Fatalf("unexpected generate output %q", out)
	}

	out = env.mustRun(t, "segments", "continue", projectID, "the bus stops")
	if !strings.Contains(out, "Scene 2 ready") {
		t.Fatalf("unexpected continue output %q", out)
	}

	out = env.mustRun(t, "segments", "list", projectID)
	if !strings.Contains(out, "a bus at night") || !strings.Contains(out, "the bus stops") {
		t.Fatalf("unexpected segments output %q", out)
	}

	store, err := scenecache.Open(env.cachePath, zerolog.Nop())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	scenes := store.Read(context.Background(), projectID)
	_ = store.Close()
	if len(scenes) != 2 || scenes[0].ID != client.InitialSceneID(projectID) || scenes[1].Status != "ready" {
		t.Fatalf("unexpected cached scenes %+v", scenes)
	}

	outDir := filepath.Join(env.baseDir, "out")
	out = env.mustRun(t, "assemble", projectID, "--out", outDir, "--remote")
	if !strings.Contains(out, "/media/assembled/"+projectID+".mp4") {
		t.Fatalf("unexpected assemble output %q", out)
	}
	raw, err := os.ReadFile(filepath.Join(outDir, "Night_bus_storyboard.json"))
	if err != nil {
		t.Fatalf("read storyboard: %v", err)
	}
	var board client.Storyboard
	if err := json.Unmarshal(raw, &board); err != nil {
		t.Fatalf("decode storyboard: %v", err)
	}
	if board.TotalScenes != 2 || board.Playlist[1].Index != 2 {
		t.Fatalf("unexpected storyboard %+v", board)
	}

	out = env.mustRun(t, "suggest", projectID)
	if strings.Count(out, "\n") != 3 {
		t.Fatalf("expected three suggestions, got %q", out)
	}

	out = env.mustRun(t, "segments", "delete-last", projectID)
	if !strings.Contains(out, "1 remaining") {
		t.Fatalf("unexpected delete-last output %q", out)
	}
	if _, err := env.run(t, "segments", "delete-last", projectID); err == nil {
		t.Fatal("expected the initial scene to be protected")
	}

	out = env.mustRun(t, "projects", "list")
	if !strings.Contains(out, projectID) {
		t.Fatalf("project missing from list %q", out)
	}
	env.mustRun(t, "projects", "delete", projectID)
	if _, err := env.run(t, "projects", "show", projectID); err == nil {
		t.Fatal("expected show to fail for a deleted project")
	}
}

func TestCLIGenerateRefusesConcurrentRun(t *testing.T) {
	env := setupCLITestEnv(t)
	p := env.backend.CreateProject("locked")

	lockDir := filepath.Join(filepath.Dir(env.cachePath), "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		t.Fatalf("create lock dir: %v", err)
	}
	lock := flock.New(filepath.Join(lockDir, p.ID+".lock"))
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	_, err := env.run(t, "generate", p.ID, "a prompt")
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestCLIGenerateReportsFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "generate", "missing-project", "a prompt"); err == nil {
		t.Fatal("expected generate to fail for an unknown project")
	}
}

func TestCLIRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[api]\nbase_url = \"nope\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "projects", "list"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected config validation error")
	}
}
