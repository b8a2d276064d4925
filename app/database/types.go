package database

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

type DocumentKind string

const (
	DocumentKindRaw     DocumentKind = "raw"
	DocumentKindLanding DocumentKind = "landing"
)

// Document is a keyed article list: a raw feed copy or an assembled landing page.
type Document struct {
	Key          string
	Kind         DocumentKind
	Articles     json.RawMessage
	ArticleCount int
	UpdatedAt    time.Time
}

type DocumentCounts struct {
	Raw     int `json:"raw"`
	Landing int `json:"landing"`
}
