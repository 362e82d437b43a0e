package model

// Kind classifies a record by the value of its kind select property.
type Kind string

const (
	KindTask    Kind = "task"
	KindMeeting Kind = "meeting"
	KindOther   Kind = "other"
)

// Notifiable reports whether records of this kind are ever relayed.
func (k Kind) Notifiable() bool {
	return k == KindTask || k == KindMeeting
}

// Record is one row of the task database, projected onto the fields the
// reconciler needs. Optional fields are left at their zero value when the
// page does not carry them.
type Record struct {
	// ID is the Notion page id (hyphenated UUID form).
	ID string `json:"id"`

	// Title is the plain text of the title property.
	Title string `json:"title"`

	Kind Kind `json:"kind"`

	// StatusID and StatusName describe the status property option.
	StatusID   string `json:"status_id"`
	StatusName string `json:"status_name"`

	// Deadline and StartTime hold the raw ISO-8601 start of the date
	// properties. Tasks use Deadline, meetings use StartTime.
	Deadline  string `json:"deadline,omitempty"`
	StartTime string `json:"start_time,omitempty"`

	// AssigneeIDs are relation references into the member database.
	AssigneeIDs []string `json:"assignee_ids,omitempty"`

	// AssigneeNames is filled instead of AssigneeIDs when the assignee
	// property is a multi_select of display names.
	AssigneeNames []string `json:"assignee_names,omitempty"`

	CheckerIDs   []string `json:"checker_ids,omitempty"`
	CheckerNames []string `json:"checker_names,omitempty"`

	// Notified is the remote "already notified" checkbox.
	Notified bool `json:"notified"`

	// Suppress and Force are operator overrides.
	Suppress bool `json:"suppress"`
	Force    bool `json:"force"`

	// URL is the browser link to the page.
	URL string `json:"url"`
}

// When returns the raw date string that frames the record's message:
// the deadline for tasks, the start time for meetings.
func (r Record) When() (string, bool) {
	var raw string
	switch r.Kind {
	case KindTask:
		raw = r.Deadline
	case KindMeeting:
		raw = r.StartTime
	}
	return raw, raw != ""
}

// StatusKey is the status discriminator: the option id, or the name
// when the id is unavailable.
func (r Record) StatusKey() string {
	if r.StatusID != "" {
		return r.StatusID
	}
	return r.StatusName
}
