// Package member resolves relation references to member display names
// and display names to chat mentions.
package member

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/task-notifier/internal/source"
)

var (
	// ErrEmptyMembers is returned when the member database yields no rows.
	ErrEmptyMembers = errors.New("member database returned no members")

	// ErrUnknownMember is wrapped by UnknownMemberError.
	ErrUnknownMember = errors.New("unknown member")
)

// UnknownMemberError reports relation ids missing from the member map.
type UnknownMemberError struct {
	IDs []string
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("unknown member id(s): %s", strings.Join(e.IDs, ", "))
}

func (e *UnknownMemberError) Unwrap() error {
	return ErrUnknownMember
}

// Fetcher reads every page of a database.
type Fetcher interface {
	FetchAll(ctx context.Context, databaseID string) ([]source.Page, error)
}

// Members maps a member page id to its display name. It is built fresh
// on every run and never persisted.
type Members map[string]string

// LoadMembers builds the member map from the member database.
func LoadMembers(ctx context.Context, f Fetcher, databaseID string) (Members, error) {
	pages, err := f.FetchAll(ctx, databaseID)
	if err != nil {
		return nil, fmt.Errorf("loading members: %w", err)
	}

	members := make(Members, len(pages))
	for _, p := range pages {
		if _, seen := members[p.ID]; seen {
			continue
		}
		members[p.ID] = p.Title
	}
	if len(members) == 0 {
		return nil, ErrEmptyMembers
	}
	return members, nil
}

// Resolve maps relation ids to display names, preserving order. If any
// id is unknown, no names are returned and the error lists every
// missing id.
func (m Members) Resolve(ids []string) ([]string, error) {
	names := make([]string, 0, len(ids))
	var missing []string
	for _, id := range ids {
		name, ok := m[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		names = append(names, name)
	}
	if len(missing) > 0 {
		return nil, &UnknownMemberError{IDs: missing}
	}
	return names, nil
}
