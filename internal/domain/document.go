package domain

import (
	"encoding/json"
	"net/http"
)

// Record is an untyped key/value document as supplied by the caller.
type Record map[string]any

// Response is the raw reply of the search service.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// LoadStats counts what a bulk load fed through the bulk-insert path.
type LoadStats struct {
	Indices int
	Types   int
	Records int
}
