package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-notifier/internal/member"
)

const taskPage = `{
  "object": "page",
  "id": "p-1",
  "properties": {
    "名前": {"type": "title", "title": [{"plain_text": "Ship report"}]},
    "ステータス": {"type": "status", "status": {"id": "st-1", "name": "進行中"}},
    "種類": {"type": "select", "select": {"name": "タスク"}},
    "担当者": {"type": "relation", "relation": [{"id": "m-1"}]},
    "締切日": {"type": "date", "date": {"start": "2099-06-01"}},
    "通知済み": {"type": "checkbox", "checkbox": false}
  }
}`

type fakeServices struct {
	mu       gosync.Mutex
	requests []string
	patches  []map[string]any
	messages []map[string]any

	notion  *httptest.Server
	discord *httptest.Server
}

func newFakeServices(t *testing.T) *fakeServices {
	t.Helper()
	f := &fakeServices{}

	f.notion = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)

		switch r.Method + " " + r.URL.Path {
		case "POST /v1/databases/member-db/query":
			_, _ = w.Write([]byte(`{"results":[{"id":"m-1","properties":{"名前":{"type":"title","title":[{"plain_text":"Alice"}]}}}],"has_more":false}`))
		case "POST /v1/databases/task-db/query":
			_, _ = w.Write([]byte(`{"results":[` + taskPage + `],"has_more":false}`))
		case "PATCH /v1/pages/p-1":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.patches = append(f.patches, body)
			_, _ = w.Write([]byte(`{"object":"page","id":"p-1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.notion.Close)

	f.discord = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.messages = append(f.messages, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(f.discord.Close)

	return f
}

type testEnv struct {
	dir       string
	statePath string
	userMap   string
}

func setupEnv(t *testing.T, f *fakeServices) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:       dir,
		statePath: filepath.Join(dir, "log", "last_state.json"),
		userMap:   filepath.Join(dir, "data", "user_map.json"),
	}

	t.Setenv("NOTION_TOKEN", "secret_token_value")
	t.Setenv("NOTION_TASK_DATABASE_ID", "task-db")
	t.Setenv("NOTION_MEMBER_DATABASE_ID", "member-db")
	t.Setenv("DISCORD_WEBHOOK_URL", f.discord.URL)
	t.Setenv("DISCORD_ADMIN_ID", "")
	t.Setenv("TASK_NOTIFIER_NOTION_BASE_URL", f.notion.URL)
	t.Setenv("TASK_NOTIFIER_NOTION_REQUESTS_PER_SECOND", "1000")
	t.Setenv("TASK_NOTIFIER_STATE_PATH", env.statePath)
	t.Setenv("TASK_NOTIFIER_STATE_USER_MAP_PATH", env.userMap)
	return env
}

func writeUserMap(t *testing.T, env testEnv, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(env.userMap), 0o755))
	require.NoError(t, os.WriteFile(env.userMap, []byte(content), 0o644))
}

func execute(t *testing.T, env testEnv, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args,
		"--config", filepath.Join(env.dir, "config.yaml"),
		"--env-file", filepath.Join(env.dir, ".env"),
	))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunSendsAndCommits(t *testing.T) {
	f := newFakeServices(t)
	env := setupEnv(t, f)
	writeUserMap(t, env, `{"Alice": "123"}`)

	out, err := execute(t, env, "run")
	require.NoError(t, err)

	require.Len(t, f.messages, 1)
	content := f.messages[0]["content"].(string)
	assert.Contains(t, content, "> # Ship report")
	assert.Contains(t, content, "\\- <@123>")
	assert.Contains(t, content, "https://www.notion.so/p1")
	assert.EqualValues(t, 4096, f.messages[0]["flags"])

	require.Len(t, f.patches, 1)
	assert.Equal(t, map[string]any{"通知済み": map[string]any{"checkbox": true}}, f.patches[0]["properties"])

	state, err := os.ReadFile(env.statePath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"p-1": "Ship report"}`, string(state))

	assert.Contains(t, out, "tasks     1")

	// A second run finds nothing new.
	_, err = execute(t, env)
	require.NoError(t, err)
	assert.Len(t, f.messages, 1)
}

func TestRunDryRunSendsNothing(t *testing.T) {
	f := newFakeServices(t)
	env := setupEnv(t, f)
	writeUserMap(t, env, `{"Alice": "123"}`)

	_, err := execute(t, env, "run", "--dry-run")
	require.NoError(t, err)

	assert.Empty(t, f.messages)
	assert.Empty(t, f.patches)
	assert.NoFileExists(t, env.statePath)
}

func TestRunEmptyUserMapFailsBeforeNetwork(t *testing.T) {
	f := newFakeServices(t)
	env := setupEnv(t, f)

	_, err := execute(t, env, "run")
	assert.ErrorIs(t, err, member.ErrEmptyUserMap)
	assert.Empty(t, f.requests)
}

func TestRunMissingDatabaseIDFailsValidation(t *testing.T) {
	f := newFakeServices(t)
	env := setupEnv(t, f)
	writeUserMap(t, env, `{"Alice": "123"}`)
	t.Setenv("NOTION_TASK_DATABASE_ID", "")

	_, err := execute(t, env, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TaskDatabaseID")
	assert.Empty(t, f.requests)
}

func TestConfigMasksSecrets(t *testing.T) {
	f := newFakeServices(t)
	env := setupEnv(t, f)

	out, err := execute(t, env, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "token: secr****")
	assert.NotContains(t, out, "secret_token_value")
	assert.Contains(t, out, "task_database_id: task-db")
	assert.Contains(t, out, "mode: checkbox")
}

func TestConfigInitWritesDefaults(t *testing.T) {
	f := newFakeServices(t)
	env := setupEnv(t, f)

	_, err := execute(t, env, "config", "init")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "in_progress_status: 進行中")
	assert.NotContains(t, string(data), "secret_token_value")

	_, err = execute(t, env, "config", "init")
	assert.ErrorContains(t, err, "already exists")
}

func TestCredentialRejectsUnknownKey(t *testing.T) {
	f := newFakeServices(t)
	env := setupEnv(t, f)

	_, err := execute(t, env, "credential", "set", "jira-token")
	assert.ErrorContains(t, err, "unknown key")
}

func TestWatchRejectsInteractive(t *testing.T) {
	f := newFakeServices(t)
	env := setupEnv(t, f)
	writeUserMap(t, env, `{"Alice": "123"}`)

	_, err := execute(t, env, "watch", "--interactive")
	assert.ErrorContains(t, err, "interactively")
	assert.Empty(t, f.requests)
}
