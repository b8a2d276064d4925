package feed

import (
	"encoding/json"
	"errors"
)

// ErrNotArray marks a feed response that is not a JSON array. Such feeds are skipped, not retried.
var ErrNotArray = errors.New("feed payload is not a JSON array")

// Payload is a fetched feed ready to be stored: a JSON array of article objects.
type Payload struct {
	Articles json.RawMessage
	Count    int
}

// Result reports what happened to each feed of one refresh batch, in input order.
type Result struct {
	Refreshed []string `json:"refreshed"`
	Skipped   []string `json:"skipped"`
	Failed    []string `json:"failed"`
}
