package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"scrapedesk/pkg/api"

	"github.com/spf13/viper"
)

// resetViper clears viper config between tests for isolation
func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("SCRAPEDESK")
	viper.AutomaticEnv()
}

type call struct {
	Name string
	Body json.RawMessage
	Auth string
}

// backend is a scripted command gateway.
type backend struct {
	mu       sync.Mutex
	replies  map[string]any
	failures map[string]string
	calls    []call
	server   *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	resetViper()

	b := &backend{replies: map[string]any{}, failures: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /commands/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		body, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		b.calls = append(b.calls, call{Name: name, Body: body, Auth: r.Header.Get("Authorization")})
		reply, ok := b.replies[name]
		failure, failed := b.failures[name]
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if failed {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(api.ErrorResponse{Error: failure, Code: "500"})
			return
		}
		if !ok {
			reply = nil
		}
		json.NewEncoder(w).Encode(reply)
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)

	viper.Set("url", b.server.URL)
	viper.Set("token", "test-token")
	return b
}

// called returns the bodies sent for a command.
func (b *backend) called(name string) []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []json.RawMessage
	for _, c := range b.calls {
		if c.Name == name {
			out = append(out, c.Body)
		}
	}
	return out
}

// run executes scrapectl with args and returns everything it printed.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand_EnvVarBinding(t *testing.T) {
	resetViper()

	t.Setenv("SCRAPEDESK_TOKEN", "env-token-value")
	t.Setenv("SCRAPEDESK_URL", "http://custom-url:8080")
	t.Setenv("SCRAPEDESK_RESULTS_LIMIT", "25")

	if token := viper.GetString("token"); token != "env-token-value" {
		t.Errorf("expected token from env var, got: %s", token)
	}
	if url := viper.GetString("url"); url != "http://custom-url:8080" {
		t.Errorf("expected url from env var, got: %s", url)
	}
	if limit := viper.GetInt("results_limit"); limit != 25 {
		t.Errorf("expected results_limit from env var, got: %d", limit)
	}
}

func TestRootCommand_ExecuteReturnsNoError(t *testing.T) {
	resetViper()

	if _, err := run(t, "", "--help"); err != nil {
		t.Errorf("root command should execute without error: %v", err)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	want := map[string]bool{
		"init": false, "jobs": false, "job": false, "results": false, "export": false,
		"files": false, "email": false, "stats": false, "validate": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %q subcommand to be registered with root command", name)
		}
	}
}

func TestExecute_ReturnsError(t *testing.T) {
	resetViper()

	rootCmd.SetArgs([]string{"unknown-command-xyz"})
	var out bytes.Buffer
	rootCmd.SetErr(&out)

	if err := Execute(); err == nil {
		t.Error("expected error for unknown command")
	}
	if !strings.Contains(out.String(), "Error:") {
		t.Errorf("expected the error to be printed, got: %s", out.String())
	}
}

func TestRootCommand_CustomConfigFile(t *testing.T) {
	resetViper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "scrapectl-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.WriteString("url: http://custom-from-config:9999\ntoken: config-token\ntheme: dark\n")
	tmpFile.Close()

	cfgFile = tmpFile.Name()
	defer func() { cfgFile = "" }()
	initConfig()

	if url := viper.GetString("url"); url != "http://custom-from-config:9999" {
		t.Errorf("expected url from config file, got: %s", url)
	}
	if token := viper.GetString("token"); token != "config-token" {
		t.Errorf("expected token from config file, got: %s", token)
	}
	if theme := viper.GetString("theme"); theme != "dark" {
		t.Errorf("expected theme from config file, got: %s", theme)
	}
}
