package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/imageviewer/internal/domain/session"
	"github.com/GriffinCanCode/imageviewer/internal/domain/viewer"
	"github.com/GriffinCanCode/imageviewer/internal/providers/flatten"
	"github.com/GriffinCanCode/imageviewer/internal/providers/remote"
	"github.com/GriffinCanCode/imageviewer/internal/testutil"
)

func png(tag byte) []byte {
	return []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R', tag, tag, tag}
}

// setup isolates configuration and returns a directory holding two images
// and a text file
func setup(t *testing.T) (home, images string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("VIEWER_STORE", "sqlite")
	t.Setenv("VIEWER_DB", filepath.Join(home, "viewer.db"))
	t.Setenv("VIEWER_SYNC_URL", "")
	t.Setenv("VIEWER_SYNC_PASSWORD", "")
	t.Setenv("VIEWER_CREDENTIALS", "")
	t.Setenv("VIEWER_FLATTEN_CMD", "")
	t.Setenv("LOG_LEVEL", "error")

	images = filepath.Join(home, "images")
	require.NoError(t, os.MkdirAll(images, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(images, "a.png"), png(1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(images, "b.png"), png(2), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(images, "readme.txt"), []byte("hello"), 0o644))
	return home, images
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "viewer %s", strings.Join(args, " "))
	return out
}

func TestNewListShow(t *testing.T) {
	_, images := setup(t)

	out := mustRun(t, "new", "--name", "trip", images)
	assert.Equal(t, "created session 0 (trip) with 2 images\n", out)

	out = mustRun(t, "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Equal(t, []string{"0", "trip", "2", "0", "false", "false"}, strings.Fields(lines[1]))

	out = mustRun(t, "show", "0")
	assert.Contains(t, out, "name:    trip")
	assert.Contains(t, out, "shown:   false")
	assert.Equal(t, 2, strings.Count(out, "blob:"))
}

func TestOpCommands(t *testing.T) {
	_, images := setup(t)
	mustRun(t, "new", images)

	assert.Equal(t, "duplicateFocused: 3 images, focus 1, shown false\n", mustRun(t, "op", "0", "dup"))
	assert.Equal(t, "moveTo: 3 images, focus 2, shown false\n", mustRun(t, "op", "0", "move", "2"))
	assert.Equal(t, "setVisible: 3 images, focus 2, shown true\n", mustRun(t, "op", "0", "show"))
	assert.Equal(t, "deleteAt: 2 images, focus 1, shown true\n", mustRun(t, "op", "0", "delete", "2"))

	_, err := run(t, "op", "0", "focus", "9")
	assert.ErrorIs(t, err, viewer.ErrOutOfRange)

	_, err = run(t, "op", "3", "dup")
	assert.ErrorIs(t, err, session.ErrOutOfRange)
}

func TestRenameAndRemove(t *testing.T) {
	_, images := setup(t)
	mustRun(t, "new", "--name", "first", images)
	mustRun(t, "new", "--name", "second")

	mustRun(t, "rename", "1", "renamed")
	mustRun(t, "rm", "0")

	out := mustRun(t, "list")
	assert.NotContains(t, out, "first")
	assert.Contains(t, out, "renamed")

	_, err := run(t, "rm", "x")
	assert.Error(t, err)
}

func TestAddImages(t *testing.T) {
	_, images := setup(t)
	mustRun(t, "new", "--name", "grow")

	out := mustRun(t, "add", "0", filepath.Join(images, "*.png"))
	assert.Equal(t, "session 0 now holds 2 images\n", out)

	out = mustRun(t, "show", "0")
	assert.Contains(t, out, "shown:   true")
}

func TestExportImport(t *testing.T) {
	home, images := setup(t)
	mustRun(t, "new", "--name", "portable", images)

	exports := filepath.Join(home, "exports")
	path := strings.TrimSpace(mustRun(t, "export", "--out", exports))
	assert.Equal(t, exports, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "sessions-"))

	other := filepath.Join(home, "other.db")
	assert.Equal(t, "imported 1 sessions\n", mustRun(t, "--db", other, "import", path))

	out := mustRun(t, "--db", other, "list")
	assert.Contains(t, out, "portable")
}

func TestFlattenNeedsCompositor(t *testing.T) {
	_, images := setup(t)
	mustRun(t, "new", images)

	_, err := run(t, "flatten", "0")
	assert.ErrorIs(t, err, flatten.ErrNotConfigured)

	_, err = run(t, "compile", "0", "--zoom", "2")
	assert.ErrorIs(t, err, flatten.ErrNotConfigured)
}

func TestLoginSwitchesToSyncService(t *testing.T) {
	home, images := setup(t)
	srv := testutil.NewSyncServer(t)

	out := mustRun(t, "login", srv.URL, "--password", srv.Password)
	assert.Contains(t, out, "logged in to "+srv.URL)

	credentials := filepath.Join(home, "config", "imageviewer", "credentials.yaml")
	_, err := os.Stat(credentials)
	require.NoError(t, err)

	mustRun(t, "new", "--name", "synced", images)
	assert.Len(t, srv.Uploads(), 2)
	records := srv.Sessions()
	require.Len(t, records, 1)
	assert.Equal(t, "synced", records[0]["name"])

	out = mustRun(t, "list")
	assert.Contains(t, out, records[0]["id"].(string))

	// the local store was never touched
	out = mustRun(t, "--local", "list")
	assert.NotContains(t, out, "synced")

	mustRun(t, "logout")
	_, err = os.Stat(credentials)
	assert.True(t, os.IsNotExist(err))
}

func TestLoginWithExplicitCredentialsPath(t *testing.T) {
	home, images := setup(t)
	srv := testutil.NewSyncServer(t)

	credentials := filepath.Join(home, "secrets", "creds.yaml")
	t.Setenv("VIEWER_CREDENTIALS", credentials)

	out := mustRun(t, "login", srv.URL, "--password", srv.Password)
	assert.Contains(t, out, credentials)
	_, err := os.Stat(credentials)
	require.NoError(t, err)

	mustRun(t, "new", "--name", "synced", images)
	assert.Contains(t, mustRun(t, "list"), "synced")
	require.Len(t, srv.Sessions(), 1)

	mustRun(t, "logout")
	_, err = os.Stat(credentials)
	assert.True(t, os.IsNotExist(err))

	out = mustRun(t, "list")
	assert.NotContains(t, out, "synced")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	home, _ := setup(t)
	srv := testutil.NewSyncServer(t)

	_, err := run(t, "login", srv.URL, "--password", "wrong")
	assert.ErrorIs(t, err, remote.ErrLoginFailed)

	_, err = os.Stat(filepath.Join(home, "config", "imageviewer", "credentials.yaml"))
	assert.True(t, os.IsNotExist(err))

	_, err = run(t, "login", srv.URL)
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		want    viewer.Command
		wantErr bool
	}{
		{args: []string{"show"}, want: viewer.SetVisible{Visible: true}},
		{args: []string{"hide"}, want: viewer.SetVisible{Visible: false}},
		{args: []string{"DUP"}, want: viewer.DuplicateFocused{}},
		{args: []string{"focus", "3"}, want: viewer.SetFocus{Index: 3}},
		{args: []string{"delete", "0"}, want: viewer.DeleteAt{Index: 0}},
		{args: []string{"move", "1"}, want: viewer.MoveTo{Target: 1}},
		{args: []string{}, wantErr: true},
		{args: []string{"focus"}, wantErr: true},
		{args: []string{"focus", "two"}, wantErr: true},
		{args: []string{"dup", "1"}, wantErr: true},
		{args: []string{"spin"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, "_"), func(t *testing.T) {
			got, err := parseCommand(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
