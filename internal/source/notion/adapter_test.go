package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-notifier/internal/model"
	"github.com/nhle/task-notifier/internal/source"
)

var testProps = model.PropertyConfig{
	Title:     "名前",
	Status:    "ステータス",
	Kind:      "種類",
	Assignee:  "担当者",
	Checker:   "確認者",
	Deadline:  "締切日",
	StartTime: "開始日時",
	Notified:  "通知済み",
	Suppress:  "非通知",
	Force:     "強制通知",
}

var testValues = model.ValueConfig{
	InProgressStatus: "進行中",
	TaskKind:         "タスク",
	MeetingKind:      "会議",
}

const taskPageJSON = `{
  "object": "page",
  "id": "1a2b3c4d-0000-1111-2222-333344445555",
  "properties": {
    "名前": {"type": "title", "title": [{"plain_text": "Ship "}, {"plain_text": "report"}]},
    "ステータス": {"type": "status", "status": {"id": "st-1", "name": "進行中"}},
    "種類": {"type": "select", "select": {"name": "タスク"}},
    "担当者": {"type": "relation", "relation": [{"id": "m-1"}, {"id": "m-2"}]},
    "確認者": {"type": "multi_select", "multi_select": [{"name": "Bob"}]},
    "締切日": {"type": "date", "date": {"start": "2025-06-01"}},
    "通知済み": {"type": "checkbox", "checkbox": false},
    "強制通知": {"type": "checkbox", "checkbox": true}
  }
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientOptions{
		BaseURL:    server.URL,
		Token:      "secret_123",
		HTTPClient: server.Client(),
	})
	return NewAdapter(client, "task-db", "www.notion.so", testProps, testValues)
}

func TestPageToRecordProjectsConfiguredProperties(t *testing.T) {
	var page Page
	require.NoError(t, json.Unmarshal([]byte(taskPageJSON), &page))

	a := NewAdapter(nil, "task-db", "www.notion.so", testProps, testValues)
	rec := a.pageToRecord(page)

	assert.Equal(t, "Ship report", rec.Title)
	assert.Equal(t, model.KindTask, rec.Kind)
	assert.Equal(t, "st-1", rec.StatusID)
	assert.Equal(t, "進行中", rec.StatusName)
	assert.Equal(t, "2025-06-01", rec.Deadline)
	assert.Empty(t, rec.StartTime)
	assert.Equal(t, []string{"m-1", "m-2"}, rec.AssigneeIDs)
	assert.Empty(t, rec.AssigneeNames)
	assert.Equal(t, []string{"Bob"}, rec.CheckerNames)
	assert.False(t, rec.Notified)
	assert.False(t, rec.Suppress)
	assert.True(t, rec.Force)
	assert.Equal(t, "https://www.notion.so/1a2b3c4d000011112222333344445555", rec.URL)
}

func TestPageToRecordToleratesMissingProperties(t *testing.T) {
	page := Page{ID: "p-empty", Properties: map[string]Property{
		"種類": {Type: "select", Select: &Option{Name: "雑談"}},
	}}

	a := NewAdapter(nil, "task-db", "", testProps, testValues)
	rec := a.pageToRecord(page)

	assert.Equal(t, "p-empty", rec.ID)
	assert.Empty(t, rec.Title)
	assert.Equal(t, model.KindOther, rec.Kind)
	assert.Empty(t, rec.AssigneeIDs)
	_, ok := rec.When()
	assert.False(t, ok)
}

func TestQuerySendsFilterAndFollowsCursor(t *testing.T) {
	var bodies []map[string]any
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/databases/task-db/query", r.URL.Path)
		assert.Equal(t, "Bearer secret_123", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		if len(bodies) == 1 {
			_, _ = w.Write([]byte(`{"object":"list","results":[` + taskPageJSON + `],"has_more":true,"next_cursor":"c2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","results":[{"object":"page","id":"p-2","properties":{}}],"has_more":false,"next_cursor":null}`))
	})

	filter := InProgressNotNotified("ステータス", "進行中", "通知済み")
	records, err := a.Query(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Ship report", records[0].Title)
	assert.Equal(t, "p-2", records[1].ID)

	require.Len(t, bodies, 2)
	assert.NotContains(t, bodies[0], "start_cursor")
	assert.Equal(t, "c2", bodies[1]["start_cursor"])
	assert.EqualValues(t, pageSize, bodies[0]["page_size"])

	and := bodies[0]["filter"].(map[string]any)["and"].([]any)
	require.Len(t, and, 2)
	assert.Equal(t, "ステータス", and[0].(map[string]any)["property"])
	assert.Equal(t, map[string]any{"equals": false}, and[1].(map[string]any)["checkbox"])
}

func TestQueryPropagatesAPIError(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","status":400,"code":"validation_error","message":"bad filter"}`))
	})

	_, err := a.Query(context.Background(), nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Code)
	assert.Equal(t, "bad filter", apiErr.Message)
}

func TestQueryUnauthorizedIsAuthError(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := a.Query(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
}

func TestFetchAllReadsTitles(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/databases/member-db/query", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "filter")

		_, _ = w.Write([]byte(`{"results":[
			{"id":"m-1","properties":{"氏名":{"type":"title","title":[{"plain_text":"Alice"}]}}},
			{"id":"m-2","properties":{}}
		],"has_more":false}`))
	})

	pages, err := a.FetchAll(context.Background(), "member-db")
	require.NoError(t, err)
	assert.Equal(t, []source.Page{
		{ID: "m-1", Title: "Alice"},
		{ID: "m-2", Title: ""},
	}, pages)
}

func TestPatchPropertySendsCheckbox(t *testing.T) {
	var body map[string]any
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/pages/p-1", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"object":"page","id":"p-1"}`))
	})

	err := a.PatchProperty(context.Background(), "p-1", "通知済み", CheckboxValue(true))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"properties": map[string]any{
			"通知済み": map[string]any{"checkbox": true},
		},
	}, body)
}

func TestPropertyValuesMarshalToNotionShape(t *testing.T) {
	tests := []struct {
		name  string
		value source.PropertyValue
		want  string
	}{
		{"checkbox", CheckboxValue(false), `{"checkbox":false}`},
		{"title", TitleValue("Ship report"), `{"title":[{"text":{"content":"Ship report"}}]}`},
		{"select", SelectValue("タスク"), `{"select":{"name":"タスク"}}`},
		{"status", StatusValue("完了"), `{"status":{"name":"完了"}}`},
		{"multi_select", MultiSelectValue("Alice", "Bob"), `{"multi_select":[{"name":"Alice"},{"name":"Bob"}]}`},
		{"number", NumberValue(2), `{"number":2}`},
		{"date", DateValue("2025-06-01"), `{"date":{"start":"2025-06-01"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				_, _ = w.Write([]byte(`{"object":"page","id":"p-1"}`))
			})

			require.NoError(t, a.PatchProperty(context.Background(), "p-1", "prop", tt.value))
			got, err := json.Marshal(body["properties"].(map[string]any)["prop"])
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestPendingOrForcedFilter(t *testing.T) {
	got, err := json.Marshal(PendingOrForced("ステータス", "進行中", "通知済み", "強制通知"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"or":[
		{"and":[
			{"property":"ステータス","status":{"equals":"進行中"}},
			{"property":"通知済み","checkbox":{"equals":false}}
		]},
		{"property":"強制通知","checkbox":{"equals":true}}
	]}`, string(got))

	assert.Equal(t,
		InProgressNotNotified("ステータス", "進行中", "通知済み"),
		PendingOrForced("ステータス", "進行中", "通知済み", ""),
	)
}

func TestValueOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want source.PropertyValue
	}{
		{"bool", false, CheckboxValue(false)},
		{"int", 3, NumberValue(3)},
		{"int64", int64(7), NumberValue(7)},
		{"float", 1.5, NumberValue(1.5)},
		{"string", "進行中", SelectValue("進行中")},
		{"strings", []string{"a", "b"}, MultiSelectValue("a", "b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ValueOf(struct{}{})
	assert.Error(t, err)
}

func TestPageURLStripsHyphens(t *testing.T) {
	assert.Equal(t, "https://www.notion.so/abc123", PageURL("", "abc-1-2-3"))
	assert.Equal(t, "https://team.notion.site/abc", PageURL("team.notion.site", "a-b-c"))
}

func TestValidateConnectionReturnsBotName(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/users/me", r.URL.Path)
		assert.Equal(t, "Bearer secret_123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Notion-Version"))
		_, _ = w.Write([]byte(`{"object":"user","id":"u-1","name":"notifier","type":"bot"}`))
	})

	name, err := a.ValidateConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "notifier", name)
}

func TestValidateConnectionRejectedToken(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"object":"error","code":"unauthorized","message":"API token is invalid."}`))
	})

	_, err := a.ValidateConnection(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
}
