package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/landing-comb/app/catalog"
	"github.com/lysyi3m/landing-comb/app/content"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []Message
	failures map[string]int // topic -> remaining failures
	calls    int
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures[msg.Topic] > 0 {
		s.failures[msg.Topic]--
		return errors.New("gateway unavailable")
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func TestRouterMatch(t *testing.T) {
	router := NewRouter(catalog.Default().Topics())

	tests := []struct {
		name       string
		categories []string
		expected   []string
	}{
		{"breaking news", []string{"Top News"}, []string{"breakingNews"}},
		{"two topics in config order", []string{"Top Sports", "Highlight"}, []string{"breakingNews", "topSports"}},
		{"case sensitive", []string{"top news"}, nil},
		{"no match", []string{"Pets"}, nil},
		{"business", []string{"World Business"}, []string{"topBusiness"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := router.Match(tt.categories)
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRouterSkipsDisabledTopics(t *testing.T) {
	router := NewRouter([]catalog.Topic{
		{ID: "off", Enabled: false, Categories: []string{"A"}},
		{ID: "on", Enabled: true, Categories: []string{"A"}},
	})

	got := router.Match([]string{"A"})
	if len(got) != 1 || got[0] != "on" {
		t.Errorf("Expected [on], got %v", got)
	}
}

func TestNewChangeMessage(t *testing.T) {
	post := content.Post{
		Slug:       "s1",
		Title:      "Flood warning",
		Date:       "2024-03-05T08:00:00",
		Modified:   "2024-03-06T09:30:00",
		Categories: []string{"Top News", "Malaysia"},
	}

	msg := NewChangeMessage(post, "breakingNews", post.Categories, true)
	if msg.Notification.Title != "🆕 New: Flood warning" {
		t.Errorf("Unexpected title: %s", msg.Notification.Title)
	}
	if msg.Notification.Body != "Top News - Tue Mar 05 2024" {
		t.Errorf("Unexpected body: %s", msg.Notification.Body)
	}
	if msg.Data["isUpdate"] != "false" || msg.Data["date"] != post.Modified {
		t.Errorf("Unexpected data: %v", msg.Data)
	}
	if msg.Data["categories"] != `["Top News","Malaysia"]` {
		t.Errorf("Unexpected categories: %s", msg.Data["categories"])
	}

	msg = NewChangeMessage(post, "breakingNews", post.Categories, false)
	if msg.Notification.Title != "♻️ Updated: Flood warning" {
		t.Errorf("Unexpected title: %s", msg.Notification.Title)
	}
	if msg.Notification.Body != "♻️ This post has been updated - Top News - Wed Mar 06 2024" {
		t.Errorf("Unexpected body: %s", msg.Notification.Body)
	}
	if msg.Data["isUpdate"] != "true" {
		t.Errorf("Expected isUpdate true, got %s", msg.Data["isUpdate"])
	}
}

func TestNewChangeMessageFallbacks(t *testing.T) {
	msg := NewChangeMessage(content.Post{Slug: "x", Title: "T", Date: "not a date"}, "t", nil, true)
	if msg.Notification.Body != "News - not a date" {
		t.Errorf("Unexpected body: %s", msg.Notification.Body)
	}
	if msg.Data["categories"] != "[]" {
		t.Errorf("Expected empty list, got %s", msg.Data["categories"])
	}
}

func TestNewPingMessage(t *testing.T) {
	msg := NewPingMessage(content.Post{Slug: "s1", Modified: "m"}, "ping", []string{"A"})
	if msg.Notification != nil {
		t.Error("Expected ping without notification block")
	}
	if !msg.IsPing() || msg.Topic != "ping" || msg.Data["topic"] != "ping" {
		t.Errorf("Unexpected ping message: %+v", msg)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "notification") {
		t.Errorf("Expected no notification key in %s", data)
	}
}

func TestNotifyChangeRetries(t *testing.T) {
	sender := &recordingSender{failures: map[string]int{"t": 2}}
	d := NewDispatcher(sender, Options{RetryDelay: time.Millisecond})

	if err := d.NotifyChange(context.Background(), content.Post{Slug: "s"}, "t", nil, true); err != nil {
		t.Fatalf("Expected success on third attempt, got: %v", err)
	}
	if sender.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", sender.calls)
	}
	if d.Stats().Sent != 1 {
		t.Errorf("Expected 1 sent, got %d", d.Stats().Sent)
	}
}

func TestNotifyChangeGivesUpAfterAttempts(t *testing.T) {
	sender := &recordingSender{failures: map[string]int{"t": 10}}
	d := NewDispatcher(sender, Options{RetryDelay: time.Millisecond})

	if err := d.NotifyChange(context.Background(), content.Post{Slug: "s"}, "t", nil, true); err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if sender.calls != DefaultAttempts {
		t.Errorf("Expected %d calls, got %d", DefaultAttempts, sender.calls)
	}
	if d.Stats().Failed != 1 {
		t.Errorf("Expected 1 failure, got %d", d.Stats().Failed)
	}
}

func TestNotifyTopicsContinuesAfterFailure(t *testing.T) {
	sender := &recordingSender{failures: map[string]int{"a": 10}}
	d := NewDispatcher(sender, Options{RetryDelay: time.Millisecond})

	failures := d.NotifyTopics(context.Background(), content.Post{Slug: "s"}, []string{"a", "b"}, nil, false)
	if failures != 1 {
		t.Errorf("Expected 1 failure, got %d", failures)
	}
	msgs := sender.snapshot()
	if len(msgs) != 1 || msgs[0].Topic != "b" {
		t.Errorf("Expected topic b to be notified, got %+v", msgs)
	}
}

func TestSchedulePingFiresAfterDelay(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, Options{PingDelay: 20 * time.Millisecond})
	defer d.Stop()

	d.SchedulePing(content.Post{Slug: "s1"}, []string{"Top News"})

	if len(sender.snapshot()) != 0 {
		t.Fatal("Expected ping not to fire immediately")
	}
	if d.Stats().PingsPending != 1 {
		t.Errorf("Expected 1 pending ping, got %d", d.Stats().PingsPending)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && d.Stats().PingsSent == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	msgs := sender.snapshot()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 ping, got %d", len(msgs))
	}
	if msgs[0].Topic != DefaultPingTopic || !msgs[0].IsPing() {
		t.Errorf("Unexpected ping: %+v", msgs[0])
	}
}

func TestSchedulePingCancel(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, Options{PingDelay: time.Hour})

	cancel := d.SchedulePing(content.Post{Slug: "s1"}, nil)
	if !cancel() {
		t.Error("Expected cancel to stop pending ping")
	}
	if cancel() {
		t.Error("Expected second cancel to report false")
	}

	d.SchedulePing(content.Post{Slug: "s2"}, nil)
	d.Stop()

	if d.Stats().PingsPending != 0 {
		t.Errorf("Expected no pending pings after stop, got %d", d.Stats().PingsPending)
	}
	if len(sender.snapshot()) != 0 {
		t.Error("Expected no pings to be sent")
	}

	if d.SchedulePing(content.Post{Slug: "s3"}, nil)() {
		t.Error("Expected scheduling after stop to be a no-op")
	}
}

func TestHTTPSender(t *testing.T) {
	var received Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewHTTPSender(srv.URL, "tok", "test-agent", 0, srv.Client())
	msg := NewChangeMessage(content.Post{Slug: "s1", Title: "T"}, "breakingNews", []string{"Top News"}, true)

	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if auth != "Bearer tok" {
		t.Errorf("Expected bearer token, got %q", auth)
	}
	if received.Topic != "breakingNews" || received.Notification == nil || received.Data["slug"] != "s1" {
		t.Errorf("Unexpected payload: %+v", received)
	}
}

func TestHTTPSenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sender := NewHTTPSender(srv.URL, "", "", 5, srv.Client())
	if err := sender.Send(context.Background(), NewPingMessage(content.Post{}, "ping", nil)); err == nil {
		t.Error("Expected error for 503 response")
	}
}
