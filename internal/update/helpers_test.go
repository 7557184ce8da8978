package update

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/adamancini/geoasset/internal/archive"
	"github.com/adamancini/geoasset/internal/fetch"
	"github.com/adamancini/geoasset/internal/store"
)

// fakeGitHub serves releases/latest metadata and codeload tarballs.
type fakeGitHub struct {
	mu        sync.Mutex
	releases  map[string]string // repo -> raw JSON body
	tarballs  map[string][]byte // repo -> archive served for any branch
	files     map[string][]byte // path -> body for direct links
	failAPI   bool
	failFetch map[string]bool
	branches  map[string]string // repo -> last requested branch
	downloads []string
	server    *httptest.Server
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	g := &fakeGitHub{
		releases:  make(map[string]string),
		tarballs:  make(map[string][]byte),
		files:     make(map[string][]byte),
		failFetch: make(map[string]bool),
		branches:  make(map[string]string),
	}
	g.server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := r.URL.Path
	switch {
	case strings.HasPrefix(p, "/repos/") && strings.HasSuffix(p, "/releases/latest"):
		if g.failAPI {
			http.Error(w, "rate limited", http.StatusForbidden)
			return
		}
		repo := strings.TrimSuffix(strings.TrimPrefix(p, "/repos/"), "/releases/latest")
		body, ok := g.releases[repo]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))

	case strings.HasPrefix(p, "/codeload/"):
		rest := strings.TrimPrefix(p, "/codeload/")
		repo, branch, ok := strings.Cut(rest, "/tar.gz/refs/heads/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		g.branches[repo] = branch
		g.downloads = append(g.downloads, repo)
		if g.failFetch[repo] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		data, ok := g.tarballs[repo]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)

	default:
		data, ok := g.files[p]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}
}

func (g *fakeGitHub) release(repo, tag string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releases[repo] = `{"tag_name":"` + tag + `","name":"` + tag + `","assets":[]}`
}

func (g *fakeGitHub) downloaded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.downloads...)
}

func (g *fakeGitHub) branch(repo string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.branches[repo]
}

// testEnv lays out assets/geo and cache directories on the OS filesystem.
type testEnv struct {
	github    *fakeGitHub
	fs        afero.Fs
	client    *fetch.Client
	extractor *archive.Extractor
	assetsDir string
	dest      string
	cache     string
	versions  *store.VersionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	g := newFakeGitHub(t)
	root := t.TempDir()
	fs := afero.NewOsFs()

	client, err := fetch.NewClient(fetch.Options{UserAgent: "geoasset-test", APIBaseURL: g.server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	assetsDir := filepath.Join(root, "assets")
	return &testEnv{
		github:    g,
		fs:        fs,
		client:    client.WithFs(fs),
		extractor: archive.NewExtractor(fs),
		assetsDir: assetsDir,
		dest:      filepath.Join(assetsDir, "geo"),
		cache:     filepath.Join(root, "cache"),
		versions:  store.NewVersionStore(fs, assetsDir),
	}
}

func (e *testEnv) updater(settings Settings) *Updater {
	settings.CodeloadBaseURL = e.github.server.URL + "/codeload"
	return NewUpdater(settings, e.client, e.extractor, e.fs)
}

func (e *testEnv) setVersions(t *testing.T, versions map[string]string) {
	t.Helper()
	for c, v := range versions {
		if err := e.versions.Write(c, v); err != nil {
			t.Fatal(err)
		}
	}
}

func (e *testEnv) snapshot(t *testing.T) map[string]string {
	t.Helper()
	snap, err := e.versions.Snapshot([]string{"geoip", "geosite"})
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func (e *testEnv) readDest(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dest, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

func (e *testEnv) cacheFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.cache)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// collect subscribes to u and returns a function yielding every state seen.
func collect(u *Updater) func() []State {
	ch, cancel := u.Subscribe(128)
	return func() []State {
		cancel()
		var states []State
		for s := range ch {
			states = append(states, s)
		}
		return states
	}
}
