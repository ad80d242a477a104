package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nutritrack/nutrition-core/internal/stubapi"
	"github.com/nutritrack/nutrition-core/pkg/logger"
)

type harness struct {
	t          *testing.T
	stub       *stubapi.Server
	configPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	stub, err := stubapi.New(stubapi.Config{
		BcryptCost: bcrypt.MinCost,
		Logger:     logger.NewDiscard("cli-test"),
	})
	require.NoError(t, err)
	require.NoError(t, stub.ApplySeed(stubapi.DefaultSeed()))

	ts := httptest.NewServer(stub)
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "nutrition.yaml")
	content := fmt.Sprintf(`api:
  base_url: %s%s
  timeout: 5s
store:
  driver: file
  path: %s
app:
  calorie_goal: 2000
`, ts.URL, stubapi.DefaultPrefix, filepath.Join(dir, "session.json"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return &harness{t: t, stub: stub, configPath: configPath}
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-config", h.configPath}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run()
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Usage: nutrition")

	code, _, _ = h.run("add", "0001")
	assert.Equal(t, exitUsage, code)

	code, _, stderr = h.run("dance")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, `unknown command "dance"`)
}

func TestRun_BadConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "whoami"}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "failed to read config")
}

func TestRun_LoggedOutCommands(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{{"whoami"}, {"today"}, {"add", "0001", "1"}, {"remove", "E1"}} {
		code, _, stderr := h.run(args...)
		assert.Equal(t, exitError, code, "%v", args)
		assert.Contains(t, stderr, "not logged in", "%v", args)
	}

	// Scanning does not need a session.
	code, stdout, _ := h.run("scan", "0001")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Banana (0001)")
}

func TestRun_SessionFlow(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run("login", "-email", "demo@nutritrack.dev", "-password", "demo")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Welcome to Nutrition Tracker, Demo")

	// The session is restored from the file store on the next run.
	code, stdout, _ = h.run("whoami")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "demo@nutritrack.dev")

	code, stdout, _ = h.run("scan", "0002")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Rolled Oats (home scale)")

	code, stdout, stderr = h.run("add", "-date", "2026-10-15", "0001", "3")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Added 3 × Banana (315 kcal)")
	assert.Contains(t, stdout, "Total: 315 kcal")

	entryID := regexp.MustCompile(`(?m)^([0-9a-f-]{36})\s+Banana`).FindStringSubmatch(stdout)
	require.Len(t, entryID, 2, stdout)

	code, stdout, _ = h.run("today", "-date", "2026-10-15")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Food log for 2026-10-15")
	assert.Contains(t, stdout, "16% of 2000 kcal")

	code, stdout, _ = h.run("remove", "-date", "2026-10-15", entryID[1])
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "No entries yet.")

	code, stdout, _ = h.run("logout")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Logged out")

	code, _, _ = h.run("whoami")
	assert.Equal(t, exitError, code)
}

func TestRun_ErrorsUseUserMessages(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("login", "-email", "demo@nutritrack.dev", "-password", "wrong")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "✗")
	assert.NotContains(t, stderr, "level=")

	code, _, _ = h.run("login", "-email", "demo@nutritrack.dev", "-password", "demo")
	require.Equal(t, exitOK, code)

	code, _, stderr = h.run("add", "0001", "zero")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "quantity")

	code, _, stderr = h.run("scan", "9999")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, `food "9999" not found`)
}

func TestRun_TodayFailsSoft(t *testing.T) {
	h := newHarness(t)

	code, _, _ := h.run("login", "-email", "demo@nutritrack.dev", "-password", "demo")
	require.Equal(t, exitOK, code)

	h.stub.Fail(stubapi.RouteDailyLedger, http.StatusBadGateway)

	code, stdout, _ := h.run("today")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "No entries yet.")
	assert.Contains(t, stdout, "Food log for "+time.Now().Format("2006-01-02"))
}

func TestRun_Register(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run("register", "-email", "new@b.com", "-password", "pw", "-name", "New")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Account created for new@b.com")

	// Registration does not sign in.
	code, _, _ = h.run("whoami")
	assert.Equal(t, exitError, code)
}

func TestRun_Completion(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run("completion", "bash")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "complete -F _nutrition_completion nutrition")
}

func TestQuietLevel(t *testing.T) {
	assert.Equal(t, "warning", quietLevel("info"))
	assert.Equal(t, "warning", quietLevel("debug"))
	assert.Equal(t, "error", quietLevel("error"))
	assert.Equal(t, "warning", quietLevel("bogus"))
}
