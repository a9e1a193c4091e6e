package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/samvad-hq/singly-connect/internal/config"
	"github.com/samvad-hq/singly-connect/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			body = []byte("null")
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/profile":
			_, _ = w.Write([]byte(`{"id":9007199254740993,"token":"` + r.URL.Query().Get("access_token") + `","services":{"twitter":{"name":"sam"}}}`))
		case "/echo":
			_, _ = w.Write([]byte(`{"method":"` + r.Method + `","limit":"` + r.URL.Query().Get("limit") + `","body":` + string(body) + `}`))
		default:
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// runCLI executes the command tree with args against srv and returns stdout.
func runCLI(t *testing.T, srv *httptest.Server, sessionPath string, args ...string) (string, error) {
	t.Helper()
	return runCLIWithStorage(t, srv, "bbolt", sessionPath, args...)
}

func runCLIWithStorage(t *testing.T, srv *httptest.Server, storageType, sessionPath string, args ...string) (string, error) {
	t.Helper()
	rt := &runtime{
		loadConfig: func() (*config.Config, error) {
			return &config.Config{
				LogLevel:    "error",
				APIBaseURL:  srv.URL,
				HTTPTimeout: 2 * time.Second,
				StorageType: storageType,
				SessionPath: sessionPath,
				SessionTTL:  time.Hour,
			}, nil
		},
	}
	root := newRootCmd(rt)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	defer rt.close()

	err := root.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func TestTokenLifecycleAndAuthorizedCall(t *testing.T) {
	srv := newTestServer(t)
	session := filepath.Join(t.TempDir(), "session.db")

	if _, err := runCLI(t, srv, session, "call", "/profile"); err == nil {
		t.Fatalf("expected error without a stored session")
	}

	if out, err := runCLI(t, srv, session, "token", "set", "tok-1"); err != nil || out != "token saved" {
		t.Fatalf("token set: out=%q err=%v", out, err)
	}
	if out, err := runCLI(t, srv, session, "token", "show"); err != nil || out != "tok-1" {
		t.Fatalf("token show: out=%q err=%v", out, err)
	}

	out, err := runCLI(t, srv, session, "call", "/profile", "--query", "token")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "tok-1" {
		t.Fatalf("query output = %q", out)
	}

	if _, err := runCLI(t, srv, session, "token", "clear"); err != nil {
		t.Fatalf("token clear: %v", err)
	}
	if _, err := runCLI(t, srv, session, "token", "show"); err == nil {
		t.Fatalf("expected error after clear")
	}
}

func TestCallQueryKeepsLargeNumbersAndObjects(t *testing.T) {
	srv := newTestServer(t)
	session := filepath.Join(t.TempDir(), "session.db")
	if _, err := runCLI(t, srv, session, "token", "set", "tok"); err != nil {
		t.Fatalf("token set: %v", err)
	}

	out, err := runCLI(t, srv, session, "call", "profile", "--async", "-q", "id")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "9007199254740993" {
		t.Fatalf("id = %q", out)
	}

	out, err = runCLI(t, srv, session, "call", "profile", "-q", "services.twitter")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "{\n  \"name\": \"sam\"\n}" {
		t.Fatalf("object output = %q", out)
	}
}

func TestCallSendsMethodParamsAndBody(t *testing.T) {
	srv := newTestServer(t)
	session := filepath.Join(t.TempDir(), "session.db")

	out, err := runCLI(t, srv, session, "call", "/echo", "--anonymous",
		"-X", "post", "-p", "limit=3", "-d", `{"body":"hi"}`)
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	want := map[string]any{
		"method": "POST",
		"limit":  "3",
		"body":   map[string]any{"body": "hi"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCallFromFile(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "req.yaml")
	content := "method: PUT\nendpoint: /echo\nauthorized: false\nparams:\n  limit: \"7\"\nbody:\n  k: v\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	out, err := runCLI(t, srv, filepath.Join(dir, "session.db"), "call", "-f", path, "-q", "method")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "PUT" {
		t.Fatalf("method = %q", out)
	}
}

func TestCallReportsErrors(t *testing.T) {
	srv := newTestServer(t)
	session := filepath.Join(t.TempDir(), "session.db")

	cases := [][]string{
		{"call", "/missing", "--anonymous"},
		{"call", "--anonymous"},
		{"call", "/echo", "--anonymous", "-p", "novalue"},
		{"call", "/echo", "--anonymous", "-d", "{bad"},
		{"call", "/echo", "--anonymous", "-q", "nothing.here"},
	}
	for _, args := range cases {
		if _, err := runCLI(t, srv, session, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestRenderIndentsWholeResponse(t *testing.T) {
	out, err := render(map[string]any{"a": []any{1, "x"}}, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "{\n  \"a\": [\n    1,\n    \"x\"\n  ]\n}"
	if out != want {
		t.Fatalf("render = %q", out)
	}
}

func TestTokenSetFailsWhenSessionsDisabled(t *testing.T) {
	srv := newTestServer(t)

	out, err := runCLIWithStorage(t, srv, "none", "", "token", "set", "tok")
	if !errors.Is(err, storage.ErrSessionsDisabled) {
		t.Fatalf("expected ErrSessionsDisabled, got out=%q err=%v", out, err)
	}
	if out != "" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVersionFlagReportsBuildVersion(t *testing.T) {
	srv := newTestServer(t)
	prev := version
	t.Cleanup(func() { SetVersion(prev) })

	SetVersion("v1.2.3")
	out, err := runCLI(t, srv, filepath.Join(t.TempDir(), "session.db"), "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.Contains(out, "v1.2.3") {
		t.Fatalf("version output = %q", out)
	}
}
