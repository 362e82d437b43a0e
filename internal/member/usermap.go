package member

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrEmptyUserMap is returned when no chat user ids are registered. It
// is raised before any network call.
var ErrEmptyUserMap = errors.New("user map is empty: no chat user ids are registered")

// userMapSchema describes the user map file: member display name to
// chat user id (a Discord snowflake).
const userMapSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": {
    "type": "string",
    "pattern": "^[0-9]*$"
  }
}`

const userMapSchemaURL = "https://task-notifier.invalid/user_map.schema.json"

var compiledUserMapSchema = mustCompileUserMapSchema()

func mustCompileUserMapSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(userMapSchema))
	if err != nil {
		panic(fmt.Sprintf("parsing user map schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(userMapSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("adding user map schema: %v", err))
	}
	return c.MustCompile(userMapSchemaURL)
}

// UserMap maps a member display name to a chat user id. It is maintained
// by hand outside this program and read-only here. An empty id is a
// placeholder and counts as unregistered.
type UserMap map[string]string

// LoadUserMap reads and validates the user map file. A missing file
// yields an empty map; callers decide whether that is fatal.
func LoadUserMap(path string) (UserMap, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return UserMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading user map %s: %w", path, err)
	}
	return ParseUserMap(data)
}

// ParseUserMap validates and decodes a user map document.
func ParseUserMap(data []byte) (UserMap, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing user map: %w", err)
	}
	if err := compiledUserMapSchema.Validate(inst); err != nil {
		return nil, fmt.Errorf("validating user map: %w", err)
	}

	obj, _ := inst.(map[string]any)
	m := make(UserMap, len(obj))
	for name, v := range obj {
		m[name] = v.(string)
	}
	return m, nil
}

// Mention returns the chat mention token for a user id.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// Mentions resolves names to mention tokens in order. Names without an
// entry are returned in unknown instead; that is not an error.
func (m UserMap) Mentions(names []string) (mentions []string, unknown []string) {
	for _, name := range names {
		if id, ok := m[name]; ok && id != "" {
			mentions = append(mentions, Mention(id))
			continue
		}
		unknown = append(unknown, name)
	}
	return mentions, unknown
}
