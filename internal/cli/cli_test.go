package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/infobase/internal/memstore"
	"github.com/roach88/infobase/internal/store"
	"github.com/roach88/infobase/internal/testutil"
)

// runner executes CLI invocations against one shared in-memory store.
type runner struct {
	t     *testing.T
	store *memstore.Store
	stdin string
}

func newRunner(t *testing.T) *runner {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	return &runner{t: t, store: memstore.New(memstore.WithClock(clock))}
}

func (r *runner) run(args ...string) (string, error) {
	r.t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	opts := &RootOptions{
		OpenStore: func(context.Context) (store.Store, error) { return r.store, nil },
	}
	cmd := NewRootCommandWithOptions(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(r.stdin))
	cmd.SetArgs(append([]string{"--config", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (r *runner) mustRun(args ...string) string {
	r.t.Helper()
	out, err := r.run(args...)
	require.NoError(r.t, err, "output: %s", out)
	return out
}

func decodeData(t *testing.T, out string, target any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, target))
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "infobase", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"}, {"get"}, {"things"}, {"versions"}, {"changes"}, {"change"},
		{"write"}, {"load"}, {"new-key"}, {"seq", "next"}, {"seq", "get"},
		{"user", "get"}, {"user", "set"}, {"user", "find"},
	}

	for _, path := range commands {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestInvalidFormat(t *testing.T) {
	r := newRunner(t)
	_, err := r.run("--format", "xml", "things")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUnknownFlag(t *testing.T) {
	r := newRunner(t)
	_, err := r.run("things", "--colour", "red")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "infobase.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: redis\n"), 0o644))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "things"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBootstrapAndGet(t *testing.T) {
	r := newRunner(t)
	r.mustRun("init", "--bootstrap")

	out := r.mustRun("get", "/book/test")
	assert.Contains(t, out, `"author":{"key":"/author/test"}`)
	assert.Contains(t, out, `"revision":1`)

	var doc map[string]any
	decodeData(t, r.mustRun("--format", "json", "get", "/book/test"), &doc)
	assert.Equal(t, "test", doc["title"])
	assert.Equal(t, float64(10), doc["pages"])
}

func TestGetNotFound(t *testing.T) {
	r := newRunner(t)
	out, err := r.run("--format", "json", "get", "/missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestWriteFromStdin(t *testing.T) {
	r := newRunner(t)
	r.stdin = `[{"key":"/page/a","type":{"key":"/type/page"},"title":"A"},
	            {"key":"/page/b","type":{"key":"/type/page"},"title":"B"}]`
	r.mustRun("write", "-", "--comment", "two pages", "--author", "/user/admin")

	var keys []string
	decodeData(t, r.mustRun("--format", "json", "things", "--type", "/type/page"), &keys)
	assert.Equal(t, []string{"/page/b", "/page/a"}, keys)

	var changes []map[string]any
	decodeData(t, r.mustRun("--format", "json", "changes"), &changes)
	require.Len(t, changes, 1)
	assert.Equal(t, "two pages", changes[0]["comment"])
	assert.Equal(t, "/user/admin", changes[0]["author"])
	assert.Nil(t, changes[0]["ip"])

	id := changes[0]["id"].(string)
	out := r.mustRun("change", id)
	assert.Contains(t, out, `"comment":"two pages"`)
}

func TestWriteInvalid(t *testing.T) {
	r := newRunner(t)
	r.stdin = `{"title":"no key"}`
	_, err := r.run("write", "-")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	r.stdin = `"just a string"`
	_, err = r.run("write", "-")
	require.Error(t, err)

	_, err = r.run("write", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestThingsFilters(t *testing.T) {
	r := newRunner(t)
	r.mustRun("load", "--bootstrap")

	out := r.mustRun("things", "--name", "author", "--value", "/author/test")
	assert.Equal(t, "/book/test\n", out)

	out = r.mustRun("things", "--type", "/type/type", "--limit", "2")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	_, err := r.run("things", "--value", "orphan")
	require.Error(t, err)
}

func TestVersions(t *testing.T) {
	r := newRunner(t)
	r.stdin = `{"key":"/a","title":"one"}`
	r.mustRun("write", "-", "--author", "/user/x")
	r.stdin = `{"key":"/a","title":"two"}`
	r.mustRun("write", "-")

	var versions []store.Version
	decodeData(t, r.mustRun("--format", "json", "versions", "--key", "/a"), &versions)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Revision)
	assert.Equal(t, "/user/x", versions[1].Author)

	out := r.mustRun("get", "/a", "--revision", "1")
	assert.Contains(t, out, `"title":"one"`)
}

func TestSequences(t *testing.T) {
	r := newRunner(t)
	assert.Equal(t, "0\n", r.mustRun("seq", "get", "ticket"))
	assert.Equal(t, "1\n", r.mustRun("seq", "next", "ticket"))
	assert.Equal(t, "2\n", r.mustRun("seq", "next", "ticket"))
	assert.Equal(t, "2\n", r.mustRun("seq", "get", "ticket"))
}

func TestNewKey(t *testing.T) {
	r := newRunner(t)
	first := strings.TrimSpace(r.mustRun("new-key", "/type/book", "--name", "Dune Messiah"))
	assert.Equal(t, "/book/dune-messiah", first)

	second := strings.TrimSpace(r.mustRun("new-key", "/type/book", "--name", "Dune Messiah"))
	assert.Equal(t, "/book/dune-messiah-2", second)
}

func TestUsers(t *testing.T) {
	r := newRunner(t)
	r.mustRun("user", "set", "/user/ann", "--email", "Ann@Example.com", "--enc-password", "x1")

	assert.Equal(t, "/user/ann\n", r.mustRun("user", "find", "ann@example.com"))

	var u store.UserDetails
	decodeData(t, r.mustRun("--format", "json", "user", "get", "/user/ann"), &u)
	assert.Equal(t, "x1", u.EncryptedPassword)

	_, err := r.run("user", "find", "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSQLiteBackendPersists(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	exec := func(args ...string) string {
		t.Helper()
		out := &bytes.Buffer{}
		cmd := NewRootCommand()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", "", "--db", db}, args...))
		require.NoError(t, cmd.Execute(), out.String())
		return out.String()
	}

	exec("init")
	exec("load", "--bootstrap")
	exec("seq", "next", "ids")

	assert.Contains(t, exec("get", "/author/test"), `"name":"test"`)
	assert.Equal(t, "1\n", exec("seq", "get", "ids"))
}
