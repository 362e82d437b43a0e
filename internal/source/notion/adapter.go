package notion

import (
	"context"
	"fmt"

	"github.com/nhle/task-notifier/internal/model"
	"github.com/nhle/task-notifier/internal/source"
)

// pageSize is the maximum page size Notion accepts for database queries.
const pageSize = 100

// Adapter implements source.RecordSource for a Notion task database.
type Adapter struct {
	client         *Client
	taskDatabaseID string
	pageHost       string
	props          model.PropertyConfig
	values         model.ValueConfig
}

// NewAdapter creates a new Notion source adapter.
func NewAdapter(
	client *Client,
	taskDatabaseID string,
	pageHost string,
	props model.PropertyConfig,
	values model.ValueConfig,
) *Adapter {
	return &Adapter{
		client:         client,
		taskDatabaseID: taskDatabaseID,
		pageHost:       pageHost,
		props:          props,
		values:         values,
	}
}

// Type returns the source type identifier for Notion.
func (a *Adapter) Type() source.SourceType {
	return source.SourceTypeNotion
}

// ValidateConnection verifies credentials by calling GET /v1/users/me.
// Returns the integration's bot name on success.
func (a *Adapter) ValidateConnection(ctx context.Context) (string, error) {
	var me User
	if err := a.client.Get(ctx, "/v1/users/me", &me); err != nil {
		return "", fmt.Errorf("validating Notion connection: %w", err)
	}
	return me.Name, nil
}

// Query returns the task database records matching filter, following
// pagination until the result set is exhausted.
func (a *Adapter) Query(
	ctx context.Context,
	filter source.Filter,
) ([]model.Record, error) {
	pages, err := a.queryPages(ctx, a.taskDatabaseID, filter)
	if err != nil {
		return nil, fmt.Errorf("querying task database: %w", err)
	}

	records := make([]model.Record, 0, len(pages))
	for _, p := range pages {
		records = append(records, a.pageToRecord(p))
	}
	return records, nil
}

// FetchAll returns the id and title of every page of databaseID.
func (a *Adapter) FetchAll(
	ctx context.Context,
	databaseID string,
) ([]source.Page, error) {
	pages, err := a.queryPages(ctx, databaseID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching database %s: %w", databaseID, err)
	}

	out := make([]source.Page, 0, len(pages))
	for _, p := range pages {
		title, _ := firstTitle(p)
		out = append(out, source.Page{ID: p.ID, Title: title})
	}
	return out, nil
}

// PatchProperty writes back a single property of a page.
func (a *Adapter) PatchProperty(
	ctx context.Context,
	recordID string,
	name string,
	value source.PropertyValue,
) error {
	return a.PatchProperties(ctx, recordID, map[string]source.PropertyValue{
		name: value,
	})
}

// PatchProperties writes several properties of a page in one request.
func (a *Adapter) PatchProperties(
	ctx context.Context,
	recordID string,
	values map[string]source.PropertyValue,
) error {
	body := UpdatePageRequest{Properties: make(map[string]any, len(values))}
	for name, v := range values {
		body.Properties[name] = v
	}

	if err := a.client.Patch(ctx, "/v1/pages/"+recordID, body, nil); err != nil {
		return fmt.Errorf("updating page %s: %w", recordID, err)
	}
	return nil
}

// queryPages runs a database query and collects every result page.
func (a *Adapter) queryPages(
	ctx context.Context,
	databaseID string,
	filter source.Filter,
) ([]Page, error) {
	path := fmt.Sprintf("/v1/databases/%s/query", databaseID)

	var pages []Page
	cursor := ""
	for {
		req := QueryRequest{
			Filter:      filter,
			StartCursor: cursor,
			PageSize:    pageSize,
		}

		var resp QueryResponse
		if err := a.client.Post(ctx, path, req, &resp); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return pages, nil
		}
		cursor = *resp.NextCursor
	}
}

// pageToRecord projects a raw page onto model.Record using the configured
// property names. Missing properties leave the field at its zero value.
func (a *Adapter) pageToRecord(p Page) model.Record {
	title, _ := Title(p, a.props.Title)
	status, _ := Status(p, a.props.Status)
	kindName, _ := Select(p, a.props.Kind)
	deadline, _ := DateStart(p, a.props.Deadline)
	start, _ := DateStart(p, a.props.StartTime)

	rec := model.Record{
		ID:         p.ID,
		Title:      title,
		Kind:       a.kindOf(kindName),
		StatusID:   status.ID,
		StatusName: status.Name,
		Deadline:   deadline,
		StartTime:  start,
		Notified:   Checkbox(p, a.props.Notified),
		URL:        PageURL(a.pageHost, p.ID),
	}

	rec.AssigneeIDs, rec.AssigneeNames = people(p, a.props.Assignee)
	if a.props.Checker != "" {
		rec.CheckerIDs, rec.CheckerNames = people(p, a.props.Checker)
	}
	if a.props.Suppress != "" {
		rec.Suppress = Checkbox(p, a.props.Suppress)
	}
	if a.props.Force != "" {
		rec.Force = Checkbox(p, a.props.Force)
	}

	return rec
}

// kindOf maps the kind select option to a model.Kind.
func (a *Adapter) kindOf(name string) model.Kind {
	switch name {
	case a.values.TaskKind:
		return model.KindTask
	case a.values.MeetingKind:
		return model.KindMeeting
	default:
		return model.KindOther
	}
}

// people reads a person-like property that is either a relation into the
// member database (ids) or a multi_select of display names.
func people(p Page, name string) (ids []string, names []string) {
	prop, ok := p.Properties[name]
	if !ok {
		return nil, nil
	}
	if prop.Type == "multi_select" {
		return nil, MultiSelect(p, name)
	}
	return Relation(p, name), nil
}

// firstTitle returns the title of a page whose title property name is
// unknown, as in member databases.
func firstTitle(p Page) (string, bool) {
	for name, prop := range p.Properties {
		if prop.Type == "title" {
			return Title(p, name)
		}
	}
	return "", false
}
