package models

import (
	"encoding/json"
	"time"
)

// ContentDocument is one catalog document: the habits list, research
// articles, ui strings or the version manifest, per language. Body is the
// raw JSON served to clients.
type ContentDocument struct {
	Type      string
	Language  string
	Body      json.RawMessage
	UpdatedAt time.Time
}
