package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	analyticsQueueSize = 1024
	analyticsTimeout   = 10 * time.Second
)

type captureEvent struct {
	APIKey     string                 `json:"api_key"`
	Event      string                 `json:"event"`
	DistinctID string                 `json:"distinct_id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Timestamp  string                 `json:"timestamp,omitempty"`
}

// PostHogTracker captures server-side events on a background worker.
// Events are dropped when the queue is full.
type PostHogTracker struct {
	host   string
	apiKey string
	client *http.Client
	queue  chan captureEvent
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPostHogTracker returns nil when apiKey is empty; callers treat a nil
// Tracker as disabled
func NewPostHogTracker(host, apiKey string) *PostHogTracker {
	if apiKey == "" {
		log.Println("PostHog not configured; analytics disabled")
		return nil
	}
	if host == "" {
		host = "https://us.i.posthog.com"
	}
	t := &PostHogTracker{
		host:   strings.TrimRight(host, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: analyticsTimeout},
		queue:  make(chan captureEvent, analyticsQueueSize),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

func (t *PostHogTracker) Track(distinctID, event string, properties map[string]interface{}) {
	ev := captureEvent{
		APIKey:     t.apiKey,
		Event:      event,
		DistinctID: distinctID,
		Properties: properties,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- ev:
	default:
		log.Printf("Analytics queue full; dropping %s event", event)
	}
}

func (t *PostHogTracker) run() {
	defer t.wg.Done()
	for ev := range t.queue {
		if err := t.send(ev); err != nil {
			log.Printf("Failed to capture %s event: %v", ev.Event, err)
		}
	}
}

func (t *PostHogTracker) send(ev captureEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), analyticsTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.host+"/capture/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("posthog returned status %d", resp.StatusCode)
	}
	return nil
}

// Close flushes queued events and stops the worker
func (t *PostHogTracker) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()
	t.wg.Wait()
}
