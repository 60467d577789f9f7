package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenant/pkg/bootstrap"
	"github.com/tendant/simple-tenant/pkg/records"
)

func setupEnv(t *testing.T, environment string) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "ctl.db"))
	t.Setenv("ENVIRONMENT_NAME", environment)
	for _, k := range []string{
		"APP_SUPERUSER_USERNAME", "APP_SUPERUSER_EMAIL", "APP_SUPERUSER_PASSWORD",
		"APP_GUEST_USERNAME", "APP_GUEST_EMAIL", "APP_GUEST_PASSWORD", "APP_GUEST_ENABLED",
	} {
		t.Setenv(k, "")
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestBootstrap_SyncIsIdempotent(t *testing.T) {
	setupEnv(t, "test")

	code, _, stderr := runCLI(t, "migrate")
	require.Equal(t, 0, code, stderr)

	args := []string{"bootstrap", "sync", "--username", "ops", "--email", "ops@example.com", "--password", "ops-password", "--guest"}
	code, out, stderr := runCLI(t, args...)
	require.Equal(t, 0, code, stderr)

	var first bootstrap.Result
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, "sync", first.Mode)
	assert.ElementsMatch(t, []string{"user:ops", "tenant:root", "user:guest", "tenant:guest"}, first.Created)

	code, out, stderr = runCLI(t, args...)
	require.Equal(t, 0, code, stderr)
	var second bootstrap.Result
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Empty(t, second.Created)
	assert.Equal(t, first.SuperuserID, second.SuperuserID)
	assert.Equal(t, first.GuestTenantID, second.GuestTenantID)
}

func TestBootstrap_StrictEnvironmentFails(t *testing.T) {
	setupEnv(t, "production")

	code, _, stderr := runCLI(t, "bootstrap", "ensure", "--migrate", "--username", "ops", "--email", "ops@example.com")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "required credential missing")
}

func TestBootstrap_VerbosityControlsLogs(t *testing.T) {
	setupEnv(t, "test")

	// lenient defaults log a warning even at the default level
	code, _, stderr := runCLI(t, "bootstrap", "ensure", "--migrate")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "using development defaults")
	assert.NotContains(t, stderr, "bootstrap complete")

	code, _, stderr = runCLI(t, "-v", "bootstrap", "ensure")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "bootstrap complete")
}

func TestGuestResetAndTotals(t *testing.T) {
	setupEnv(t, "test")

	code, _, stderr := runCLI(t, "bootstrap", "sync", "--migrate", "--guest")
	require.Equal(t, 0, code, stderr)

	code, out, stderr := runCLI(t, "guest", "reset")
	require.Equal(t, 0, code, stderr)
	var counts []records.ModelCount
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Len(t, counts, 4)

	// the root tenant is not resettable
	code, _, stderr = runCLI(t, "guest", "reset", "--slug", "root")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "forbidden")

	code, out, stderr = runCLI(t, "records", "totals")
	require.Equal(t, 0, code, stderr)
	var totals []records.ModelCount
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	for _, c := range totals {
		assert.Zero(t, c.Rows, c.Model)
	}
}
