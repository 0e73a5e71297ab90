package api

import (
	"driftboard/internal/schema"
)

// Wire resource shapes. The remote schema is the service's contract and is
// treated as fixed; these structs decode exactly what the client consumes.

// Project identifies one board.
type Project struct {
	GID      string `json:"gid"`
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
	Color    string `json:"color,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Section is one kanban column of a project.
type Section struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Task is the wire shape of a task, including its custom field values.
// ModifiedAt doubles as the remote revision marker.
type Task struct {
	GID          string             `json:"gid"`
	Name         string             `json:"name"`
	Completed    bool               `json:"completed"`
	Section      *Section           `json:"section,omitempty"`
	ModifiedAt   string             `json:"modified_at,omitempty"`
	CustomFields []schema.WireField `json:"custom_fields,omitempty"`
}

// envelope wraps single-resource responses: {"data": {...}}.
type envelope[T any] struct {
	Data T `json:"data"`
}

// nextPage carries the continuation token of a list response.
type nextPage struct {
	Offset string `json:"offset"`
	Path   string `json:"path,omitempty"`
	URI    string `json:"uri,omitempty"`
}

// listEnvelope wraps list responses: {"data": [...], "next_page": {...}}.
type listEnvelope[T any] struct {
	Data     []T       `json:"data"`
	NextPage *nextPage `json:"next_page"`
}

// apiErrorBody decodes the service's error payload for diagnostics.
type apiErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}
