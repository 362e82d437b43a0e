package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/task-notifier/internal/model"
)

// AuthError indicates that authentication has failed or expired for a source.
// It is returned by source clients when a 401 response is received.
type AuthError struct {
	SourceType SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// SourceType identifies the kind of external record store.
type SourceType string

const (
	SourceTypeNotion SourceType = "notion"
)

// Filter is an opaque, source-specific query predicate. A nil Filter
// selects every record.
type Filter any

// PropertyValue is a single typed property write, already shaped for the
// source's wire format.
type PropertyValue any

// Page is a raw record of any database, used where the caller only needs
// the id and title (e.g. the member database).
type Page struct {
	ID    string
	Title string
}

// RecordSource defines the contract the reconciler needs from the remote
// record store.
type RecordSource interface {
	// Type returns the source type identifier.
	Type() SourceType

	// Query returns the task records matching filter. Any non-2xx
	// response is returned as an error; there is no retry.
	Query(ctx context.Context, filter Filter) ([]model.Record, error)

	// FetchAll returns every page of the given database without a filter.
	FetchAll(ctx context.Context, databaseID string) ([]Page, error)

	// PatchProperty writes back a single property of a record.
	PatchProperty(
		ctx context.Context,
		recordID string,
		name string,
		value PropertyValue,
	) error
}
