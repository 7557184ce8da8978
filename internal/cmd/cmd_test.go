package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/geoasset/internal/archive/archivetest"
)

const testRepo = "Chocolate4U/Iran-sing-box-rules"

// fakeProvider serves one release and direct-link files.
type fakeProvider struct {
	mu     sync.Mutex
	tag    string
	files  map[string][]byte
	server *httptest.Server
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{tag: "20260101", files: make(map[string][]byte)}
	tarball := archivetest.TarGz(t, map[string]string{
		"rules/geoip-ir.srs":   "ip",
		"rules/geosite-ir.srs": "site",
	})

	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		switch r.URL.Path {
		case "/repos/" + testRepo + "/releases/latest":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"tag_name":"` + p.tag + `"}`))
		case "/codeload/" + testRepo + "/tar.gz/refs/heads/rule-set":
			_, _ = w.Write(tarball)
		default:
			body, ok := p.files[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(body)
		}
	}))
	t.Cleanup(p.server.Close)
	return p
}

type cliEnv struct {
	root   string
	config string
}

func newCLIEnv(t *testing.T, p *fakeProvider) *cliEnv {
	t.Helper()

	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	t.Setenv("GEOASSET_CONFIG", "")

	lines := []string{
		"version: 1",
		"provider: chocolate4u",
		"assets_dir: " + filepath.Join(root, "assets"),
		"cache_dir: " + filepath.Join(root, "cache"),
	}
	if p != nil {
		lines = append(lines,
			"api_base_url: "+p.server.URL,
			"codeload_base_url: "+p.server.URL+"/codeload",
		)
	}

	path := filepath.Join(root, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return &cliEnv{root: root, config: path}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--config", e.config}, args...))
	root.SetIn(strings.NewReader(""))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) version(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.root, "assets", name+".version.txt"))
	if err != nil {
		t.Fatalf("read %s version: %v", name, err)
	}
	return strings.TrimSpace(string(data))
}

type listing struct {
	Provider string `json:"provider"`
	Assets   []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Builtin bool   `json:"builtin"`
		URL     string `json:"url"`
	} `json:"assets"`
}

func TestUpdateCommand(t *testing.T) {
	p := newFakeProvider(t)
	env := newCLIEnv(t, p)

	stdout, _, err := env.run(t, "update", "-o", "json")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	var result struct {
		Status   string            `json:"status"`
		Provider string            `json:"provider"`
		Versions map[string]string `json:"versions"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if result.Status != "updated" || result.Provider != "chocolate4u" {
		t.Errorf("result = %+v", result)
	}
	if result.Versions["geoip"] != "20260101" || result.Versions["geosite"] != "20260101" {
		t.Errorf("versions = %v", result.Versions)
	}
	if _, err := os.Stat(filepath.Join(env.root, "assets", "geo", "geoip-ir.srs")); err != nil {
		t.Errorf("rule set not extracted: %v", err)
	}

	stdout, _, err = env.run(t, "update")
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if !strings.Contains(stdout, "Assets are up to date") {
		t.Errorf("stdout = %q", stdout)
	}

	p.mu.Lock()
	p.tag = "20260202"
	p.mu.Unlock()

	if _, _, err := env.run(t, "update", "-q"); err != nil {
		t.Fatalf("third update: %v", err)
	}
	if got := env.version(t, "geosite"); got != "20260202" {
		t.Errorf("geosite version = %s, want 20260202", got)
	}
}

func TestUpdateCommandNetworkFailure(t *testing.T) {
	p := newFakeProvider(t)
	env := newCLIEnv(t, p)
	p.server.Close()

	if _, _, err := env.run(t, "update"); err == nil {
		t.Fatal("expected error when the provider is unreachable")
	}
}

func TestImportCommand(t *testing.T) {
	env := newCLIEnv(t, nil)

	source := filepath.Join(env.root, "rules.zip")
	data := archivetest.Zip(t, map[string]string{"geoip-ir.srs": "ip"})
	if err := os.WriteFile(source, data, 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := env.run(t, "import", source)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(stdout, "Import complete") {
		t.Errorf("stdout = %q", stdout)
	}
	if got := env.version(t, "geoip"); got != "Custom" {
		t.Errorf("geoip version = %s, want Custom", got)
	}
	if _, err := os.Stat(source); err != nil {
		t.Errorf("source removed: %v", err)
	}

	// Staging directories are cleaned up.
	entries, _ := os.ReadDir(filepath.Join(env.root, "cache"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "import-") {
			t.Errorf("staging directory left behind: %s", e.Name())
		}
	}
}

func TestImportCommandMissingFile(t *testing.T) {
	env := newCLIEnv(t, nil)

	_, _, err := env.run(t, "import", filepath.Join(env.root, "missing.tar.gz"))
	if err == nil || !strings.Contains(err.Error(), "failed to open") {
		t.Fatalf("err = %v, want open failure", err)
	}
}

func TestAssetLifecycle(t *testing.T) {
	p := newFakeProvider(t)
	p.files["/ads.srs"] = []byte("ads v1")
	env := newCLIEnv(t, p)

	stdout, _, err := env.run(t, "asset", "add", "geosite-ads.srs", p.server.URL+"/ads.srs")
	if err != nil {
		t.Fatalf("asset add: %v", err)
	}
	if !strings.Contains(stdout, "Added geosite-ads.srs") {
		t.Errorf("stdout = %q", stdout)
	}

	target := filepath.Join(env.root, "assets", "geo", "geosite-ads.srs")
	if data, _ := os.ReadFile(target); string(data) != "ads v1" {
		t.Errorf("asset content = %q", data)
	}

	stdout, _, err = env.run(t, "list", "-o", "json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var l listing
	if err := json.Unmarshal([]byte(stdout), &l); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if len(l.Assets) != 3 {
		t.Fatalf("assets = %+v", l.Assets)
	}
	added := l.Assets[2]
	if added.Name != "geosite-ads.srs" || added.Builtin || added.URL != p.server.URL+"/ads.srs" || len(added.Version) != 17 {
		t.Errorf("added asset = %+v", added)
	}

	p.mu.Lock()
	p.files["/ads.srs"] = []byte("ads v2")
	p.mu.Unlock()
	if _, _, err := env.run(t, "asset", "update", "geosite-ads.srs"); err != nil {
		t.Fatalf("asset update: %v", err)
	}
	if data, _ := os.ReadFile(target); string(data) != "ads v2" {
		t.Errorf("asset content after update = %q", data)
	}

	if _, _, err := env.run(t, "asset", "remove", "--yes", "geosite-ads.srs"); err != nil {
		t.Fatalf("asset remove: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("asset file still present: %v", err)
	}

	stdout, _, err = env.run(t, "list", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	l = listing{}
	if err := json.Unmarshal([]byte(stdout), &l); err != nil {
		t.Fatal(err)
	}
	if len(l.Assets) != 2 {
		t.Errorf("assets after remove = %+v", l.Assets)
	}
}

func TestAssetCommandErrors(t *testing.T) {
	p := newFakeProvider(t)
	env := newCLIEnv(t, p)

	tests := []struct {
		name string
		args []string
	}{
		{"add builtin name", []string{"asset", "add", "geoip", p.server.URL + "/x"}},
		{"add unreachable link", []string{"asset", "add", "x.srs", p.server.URL + "/missing"}},
		{"update builtin", []string{"asset", "update", "geosite"}},
		{"update unknown", []string{"asset", "update", "nothing.srs"}},
		{"remove unknown", []string{"asset", "remove", "-y", "nothing.srs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := env.run(t, tt.args...); err == nil {
				t.Errorf("%v: expected error", tt.args)
			}
		})
	}
}

func TestAssetRemoveBuiltinResetsVersion(t *testing.T) {
	env := newCLIEnv(t, nil)

	if _, _, err := env.run(t, "list"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.run(t, "asset", "rm", "-y", "geoip"); err != nil {
		t.Fatalf("remove geoip: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.root, "assets", "geoip.version.txt")); !os.IsNotExist(err) {
		t.Errorf("geoip version file still present: %v", err)
	}
}

func TestListTextOutput(t *testing.T) {
	env := newCLIEnv(t, nil)

	stdout, _, err := env.run(t, "ls")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"NAME", "geoip", "geosite", "Unknown", "provider: chocolate4u"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("listing missing %q:\n%s", want, stdout)
		}
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	env := newCLIEnv(t, nil)

	if _, _, err := env.run(t, "list", "-o", "xml"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}

func TestVerboseQuietExclusive(t *testing.T) {
	env := newCLIEnv(t, nil)

	if _, _, err := env.run(t, "list", "-v", "-q"); err == nil {
		t.Fatal("expected error for --verbose with --quiet")
	}
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t, nil)

	stdout, _, err := env.run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "geoasset version dev") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestIsCatalogFile(t *testing.T) {
	tests := map[string]bool{
		"/data/assets.db":         true,
		"/data/assets.db-wal":     true,
		"/data/assets.db-journal": true,
		"/data/geo/geoip-ir.srs":  false,
		"/data/geoip.version.txt": false,
	}
	for path, want := range tests {
		if got := isCatalogFile(path); got != want {
			t.Errorf("isCatalogFile(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	env := newCLIEnv(t, nil)

	for shell := range completionGenerators {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := env.run(t, "completion", shell)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(stdout, "geoasset") {
				t.Errorf("%s completion does not mention geoasset", shell)
			}
		})
	}

	if _, _, err := env.run(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}

func TestAssetRemoveWithoutCommandContext(t *testing.T) {
	env := newCLIEnv(t, nil)
	if _, _, err := env.run(t, "list"); err != nil {
		t.Fatal(err)
	}

	prev := configPath
	configPath = env.config
	t.Cleanup(func() { configPath = prev })

	// RunE called directly, as cobra does not set a context outside Execute.
	cmd := newAssetRemoveCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Flags().Set("yes", "true"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.RunE(cmd, []string{"geosite"}); err != nil {
		t.Fatalf("remove geosite: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.root, "assets", "geosite.version.txt")); !os.IsNotExist(err) {
		t.Errorf("geosite version file still present: %v", err)
	}

	err := cmd.RunE(cmd, []string{"nothing.srs"})
	if err == nil || !strings.Contains(err.Error(), "nothing.srs") {
		t.Errorf("remove unknown asset: err = %v", err)
	}
}

// lockedBuffer is written by the watch loop while the test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) listings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), `"provider"`)
}

func TestWatchListFreshInstall(t *testing.T) {
	env := newCLIEnv(t, nil)

	out := &lockedBuffer{}
	svc, err := NewService(ServiceOptions{
		ConfigPath:   env.config,
		OutputFormat: "json",
		Stdout:       out,
		Stderr:       io.Discard,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- svc.watchList(cmd) }()

	// Version files written by the first listing must not cause another.
	time.Sleep(time.Second)
	if n := out.listings(); n != 1 {
		t.Fatalf("listings after start = %d, want 1", n)
	}

	if err := os.WriteFile(filepath.Join(env.root, "assets", "geo", "geoip-ir.srs"), []byte("ip"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for out.listings() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if n := out.listings(); n != 2 {
		t.Errorf("listings after change = %d, want 2", n)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watchList() error = %v", err)
	}
}
