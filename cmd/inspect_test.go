package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/km-arc/go-bootstrap/framework/app"
)

// setupCommand points the application at an empty environment and
// captures the command output.
func setupCommand(t *testing.T, args ...string) *bytes.Buffer {
	t.Helper()
	original := newApplication
	t.Cleanup(func() { newApplication = original })
	newApplication = func(opts ...app.Option) (*app.Application, error) {
		return app.New(append(opts, app.WithLogger(zaptest.NewLogger(t)))...)
	}

	t.Setenv("APP_DEBUG", "false")
	dir := t.TempDir()
	rootCmd.SetArgs(append(args,
		"--env", filepath.Join(dir, "missing.env"),
		"--config-dir", dir,
	))
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	return out
}

func TestPlanCmd(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Given the plan command for a framework binding
		out := setupCommand(t, "plan", "config.repository")

		// When executing the command
		err := Execute()

		// Then the tree names the binding
		if err != nil {
			t.Fatalf("Expected success, got error: %v", err)
		}
		if !strings.Contains(out.String(), "config.repository") {
			t.Errorf("Expected the tree to mention config.repository, got %q", out.String())
		}
	})

	t.Run("UnboundAbstract", func(t *testing.T) {
		// Given the plan command for an unknown abstract
		setupCommand(t, "plan", "nope")

		// When executing the command
		err := Execute()

		// Then an error is returned
		if err == nil {
			t.Fatal("Expected an error for an unbound abstract")
		}
	})

	t.Run("RequiresAnArgument", func(t *testing.T) {
		setupCommand(t, "plan")
		if err := Execute(); err == nil {
			t.Fatal("Expected an argument error")
		}
	})
}

func TestBindingsCmd(t *testing.T) {
	// Given the bindings command
	out := setupCommand(t, "bindings")

	// When executing the command
	if err := Execute(); err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}

	// Then the framework abstracts are listed in registration order
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	for _, want := range []string{"container", "app", "config", "config.repository", "log", "db", "router"} {
		found := false
		for _, l := range lines {
			if l == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %q in %v", want, lines)
		}
	}
	if lines[0] != "container" {
		t.Errorf("Expected container first, got %q", lines[0])
	}
}

func TestServeCmdInitialization(t *testing.T) {
	if serveCmd.Use != "serve" {
		t.Errorf("Expected Use to be 'serve', got %s", serveCmd.Use)
	}
	if serveCmd.Short == "" || serveCmd.Long == "" {
		t.Error("Expected non-empty descriptions")
	}
}
