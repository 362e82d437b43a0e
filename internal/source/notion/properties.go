package notion

import (
	"fmt"
	"strings"

	"github.com/nhle/task-notifier/internal/source"
)

// Field accessors are pure projections over a raw page. A missing or
// malformed property yields the zero value and false; they never panic.

// Title returns the plain text of a title property.
func Title(p Page, name string) (string, bool) {
	prop, ok := p.Properties[name]
	if !ok || len(prop.Title) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, rt := range prop.Title {
		b.WriteString(rt.PlainText)
	}
	title := b.String()
	return title, title != ""
}

// Status returns the option of a status property.
func Status(p Page, name string) (Option, bool) {
	prop, ok := p.Properties[name]
	if !ok || prop.Status == nil {
		return Option{}, false
	}
	return *prop.Status, true
}

// Select returns the option name of a select property.
func Select(p Page, name string) (string, bool) {
	prop, ok := p.Properties[name]
	if !ok || prop.Select == nil || prop.Select.Name == "" {
		return "", false
	}
	return prop.Select.Name, true
}

// MultiSelect returns the option names of a multi_select property.
func MultiSelect(p Page, name string) []string {
	prop, ok := p.Properties[name]
	if !ok || len(prop.MultiSelect) == 0 {
		return nil
	}
	names := make([]string, 0, len(prop.MultiSelect))
	for _, opt := range prop.MultiSelect {
		names = append(names, opt.Name)
	}
	return names
}

// Relation returns the referenced page ids of a relation property.
func Relation(p Page, name string) []string {
	prop, ok := p.Properties[name]
	if !ok || len(prop.Relation) == 0 {
		return nil
	}
	ids := make([]string, 0, len(prop.Relation))
	for _, ref := range prop.Relation {
		if ref.ID != "" {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// Checkbox returns the value of a checkbox property; missing is false.
func Checkbox(p Page, name string) bool {
	prop, ok := p.Properties[name]
	if !ok || prop.Checkbox == nil {
		return false
	}
	return *prop.Checkbox
}

// DateStart returns the start of a date property.
func DateStart(p Page, name string) (string, bool) {
	prop, ok := p.Properties[name]
	if !ok || prop.Date == nil || prop.Date.Start == "" {
		return "", false
	}
	return prop.Date.Start, true
}

// PageURL builds the browser link for a page id: the id with its hyphens
// removed, under host.
func PageURL(host, id string) string {
	if host == "" {
		host = "www.notion.so"
	}
	return "https://" + host + "/" + strings.ReplaceAll(id, "-", "")
}

// Property value constructors shape a write for PATCH /v1/pages/{id}.

// CheckboxValue sets a checkbox property.
func CheckboxValue(v bool) source.PropertyValue {
	return map[string]any{"checkbox": v}
}

// TitleValue replaces a title property with plain text.
func TitleValue(text string) source.PropertyValue {
	return map[string]any{
		"title": []any{
			map[string]any{"text": map[string]any{"content": text}},
		},
	}
}

// SelectValue sets a select property by option name.
func SelectValue(name string) source.PropertyValue {
	return map[string]any{"select": map[string]any{"name": name}}
}

// StatusValue sets a status property by option name.
func StatusValue(name string) source.PropertyValue {
	return map[string]any{"status": map[string]any{"name": name}}
}

// MultiSelectValue sets a multi_select property by option names.
func MultiSelectValue(names ...string) source.PropertyValue {
	opts := make([]any, 0, len(names))
	for _, n := range names {
		opts = append(opts, map[string]any{"name": n})
	}
	return map[string]any{"multi_select": opts}
}

// NumberValue sets a number property.
func NumberValue(n float64) source.PropertyValue {
	return map[string]any{"number": n}
}

// DateValue sets the start of a date property (ISO-8601).
func DateValue(start string) source.PropertyValue {
	return map[string]any{"date": map[string]any{"start": start}}
}

// ValueOf infers the property shape from a Go value: bool is a checkbox,
// numbers are numbers, a string is a select option and a string slice is
// a multi_select. Titles, statuses and dates need their explicit
// constructors.
func ValueOf(v any) (source.PropertyValue, error) {
	switch val := v.(type) {
	case bool:
		return CheckboxValue(val), nil
	case int:
		return NumberValue(float64(val)), nil
	case int64:
		return NumberValue(float64(val)), nil
	case float64:
		return NumberValue(val), nil
	case string:
		return SelectValue(val), nil
	case []string:
		return MultiSelectValue(val...), nil
	default:
		return nil, fmt.Errorf("unsupported property value type %T", v)
	}
}

// StatusEquals selects records whose status equals statusName.
func StatusEquals(statusProp, statusName string) source.Filter {
	return map[string]any{
		"property": statusProp,
		"status":   map[string]any{"equals": statusName},
	}
}

// CheckboxEquals selects records whose checkbox property equals v.
func CheckboxEquals(prop string, v bool) source.Filter {
	return map[string]any{
		"property": prop,
		"checkbox": map[string]any{"equals": v},
	}
}

// And selects records matching every filter.
func And(filters ...source.Filter) source.Filter {
	return map[string]any{"and": compound(filters)}
}

// Or selects records matching any filter.
func Or(filters ...source.Filter) source.Filter {
	return map[string]any{"or": compound(filters)}
}

func compound(filters []source.Filter) []any {
	out := make([]any, 0, len(filters))
	for _, f := range filters {
		out = append(out, f)
	}
	return out
}

// InProgressNotNotified selects records whose status equals statusName
// and whose notified checkbox is still false.
func InProgressNotNotified(statusProp, statusName, notifiedProp string) source.Filter {
	return And(
		StatusEquals(statusProp, statusName),
		CheckboxEquals(notifiedProp, false),
	)
}

// PendingOrForced widens InProgressNotNotified with every record whose
// force checkbox is ticked, whatever its status and notified flag. An
// empty forceProp leaves the filter unchanged.
func PendingOrForced(statusProp, statusName, notifiedProp, forceProp string) source.Filter {
	pending := InProgressNotNotified(statusProp, statusName, notifiedProp)
	if forceProp == "" {
		return pending
	}
	return Or(pending, CheckboxEquals(forceProp, true))
}
