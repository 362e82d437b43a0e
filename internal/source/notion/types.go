package notion

// QueryRequest is the body of POST /v1/databases/{id}/query.
type QueryRequest struct {
	Filter      any    `json:"filter,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// QueryResponse is a single page of database query results.
type QueryResponse struct {
	Object     string  `json:"object"`
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Page is a Notion page (a database row).
type Page struct {
	Object     string              `json:"object"`
	ID         string              `json:"id"`
	URL        string              `json:"url,omitempty"`
	Archived   bool                `json:"archived,omitempty"`
	Properties map[string]Property `json:"properties"`
}

// Property is a page property value. Only the field matching Type is
// populated by the API.
type Property struct {
	ID          string      `json:"id,omitempty"`
	Type        string      `json:"type"`
	Title       []RichText  `json:"title,omitempty"`
	RichText    []RichText  `json:"rich_text,omitempty"`
	Status      *Option     `json:"status,omitempty"`
	Select      *Option     `json:"select,omitempty"`
	MultiSelect []Option    `json:"multi_select,omitempty"`
	Relation    []Reference `json:"relation,omitempty"`
	Checkbox    *bool       `json:"checkbox,omitempty"`
	Date        *Date       `json:"date,omitempty"`
	Number      *float64    `json:"number,omitempty"`
}

// RichText is one segment of a text or title property.
type RichText struct {
	Type      string `json:"type,omitempty"`
	PlainText string `json:"plain_text"`
}

// Option is a select, multi_select, or status option.
type Option struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Reference points at a page in another database.
type Reference struct {
	ID string `json:"id"`
}

// Date is a date property value. Start is ISO-8601, either a date
// (2025-06-01) or a date-time (2025-06-01T14:00:00.000+09:00).
type Date struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// UpdatePageRequest is the body of PATCH /v1/pages/{id}.
type UpdatePageRequest struct {
	Properties map[string]any `json:"properties"`
}

// User is the response from GET /v1/users/me.
type User struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// ErrorResponse is the standard Notion error body.
type ErrorResponse struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
