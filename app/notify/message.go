package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/landing-comb/app/content"
)

const (
	newLabel     = "🆕 New"
	updatedLabel = "♻️ Updated"
	fallbackCat  = "News"
)

var cmsDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Message is the payload handed to a Sender. Silent messages have no Notification.
type Message struct {
	Topic        string            `json:"topic"`
	Notification *Notification     `json:"notification,omitempty"`
	Data         map[string]string `json:"data"`
}

func (m Message) IsPing() bool {
	return m.Data["isPing"] == "true"
}

// NewChangeMessage builds the visible new/updated notification for a post on one topic.
func NewChangeMessage(post content.Post, topic string, categories []string, isNew bool) Message {
	category := fallbackCat
	if len(post.Categories) > 0 && post.Categories[0] != "" {
		category = post.Categories[0]
	}

	label, body := newLabel, fmt.Sprintf("%s - %s", category, displayDate(post.Date))
	if !isNew {
		label = updatedLabel
		body = fmt.Sprintf("♻️ This post has been updated - %s - %s", category, displayDate(post.Modified))
	}

	data := baseData(post, topic, categories)
	data["isUpdate"] = fmt.Sprintf("%t", !isNew)

	return Message{
		Topic: topic,
		Notification: &Notification{
			Title: fmt.Sprintf("%s: %s", label, post.Title),
			Body:  body,
		},
		Data: data,
	}
}

// NewPingMessage builds the silent, data-only ping for a changed post.
func NewPingMessage(post content.Post, topic string, categories []string) Message {
	data := baseData(post, topic, categories)
	data["isPing"] = "true"
	return Message{Topic: topic, Data: data}
}

func baseData(post content.Post, topic string, categories []string) map[string]string {
	if categories == nil {
		categories = []string{}
	}
	encoded, err := json.Marshal(categories)
	if err != nil {
		encoded = []byte("[]")
	}

	return map[string]string{
		"slug":       post.Slug,
		"date":       post.Modified,
		"categories": string(encoded),
		"topic":      topic,
	}
}

// displayDate renders a CMS timestamp as "Mon Jan 02 2006", or returns it unchanged when unparseable.
func displayDate(value string) string {
	for _, layout := range cmsDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("Mon Jan 02 2006")
		}
	}
	return value
}
