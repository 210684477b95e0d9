package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjahr/smartalarmserver/internal/config"
	"github.com/mjahr/smartalarmserver/internal/log"
)

func webhookConfig(urlBase string) *config.WebhookConfig {
	return &config.WebhookConfig{
		URLBase:              urlBase,
		AppID:                "app-1",
		AccessToken:          "secret",
		Timeout:              2,
		QueueSize:            100,
		RepeatUpdateInterval: 55,
	}
}

func TestWebhookQueueDropOldest(t *testing.T) {
	cfg := webhookConfig("http://unused")
	cfg.QueueSize = 3
	w := NewWebhook(cfg, log.NewLogger("error"))

	// Worker not started: everything stays queued.
	for _, payload := range []string{"a", "b", "c", "d"} {
		w.enqueue("update", payload)
	}

	require.Len(t, w.queue, 3)

	var kept []string
	for len(w.queue) > 0 {
		item := <-w.queue
		kept = append(kept, item.payload)
	}
	// "a" was evicted; the newest item is never dropped.
	assert.Equal(t, []string{`"b"`, `"c"`, `"d"`}, kept)
}

func TestWebhookEnqueueNeverBlocks(t *testing.T) {
	cfg := webhookConfig("http://unused")
	cfg.QueueSize = 1
	w := NewWebhook(cfg, log.NewLogger("error"))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			w.enqueue("update", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
}

func TestWebhookDeliveryURL(t *testing.T) {
	var gotPath, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := NewWebhook(webhookConfig(server.URL), log.NewLogger("error"))
	w.post(webhookItem{path: "alarm/5/IN_ALARM", payload: `{"zonename":"Front Door"}`})

	assert.Equal(t, "/app-1/alarm/5/IN_ALARM", gotPath)
	assert.Equal(t, "secret", gotToken)
}

func TestWebhookRepeatSuppression(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		requests++
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := NewWebhook(webhookConfig(server.URL), log.NewLogger("error"))
	item := webhookItem{path: "update", payload: `{"armed":true}`}

	w.post(item)
	w.post(item)
	assert.Equal(t, 1, requests, "identical payload inside the window must be suppressed")

	// A different payload on the same path goes straight through.
	w.post(webhookItem{path: "update", payload: `{"armed":false}`})
	assert.Equal(t, 2, requests)

	// Once the window has elapsed the same payload is delivered again.
	w.lastTime = time.Now().Add(-56 * time.Second)
	w.lastPayload = item.payload
	w.lastPath = item.path
	w.post(item)
	assert.Equal(t, 3, requests)
}

func TestWebhookFailureIsDroppedNotRetried(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		requests++
		rw.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := NewWebhook(webhookConfig(server.URL), log.NewLogger("error"))
	item := webhookItem{path: "update", payload: `{"armed":true}`}

	w.post(item)
	assert.Equal(t, 1, requests)
	assert.Empty(t, w.lastPayload, "failed delivery must not arm the dedup state")

	// The same item posted again is a fresh attempt, not a suppressed one.
	w.post(item)
	assert.Equal(t, 2, requests)
}

func TestWebhookAcceptsNon200Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	w := NewWebhook(webhookConfig(server.URL), log.NewLogger("error"))
	w.post(webhookItem{path: "update", payload: `{}`})

	assert.Equal(t, `{}`, w.lastPayload, "202 counts as delivered")
}

func TestWebhookWorkerShutdown(t *testing.T) {
	w := NewWebhook(webhookConfig("http://unused"), log.NewLogger("error"))

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	select {
	case <-w.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after cancellation")
	}
}

func TestWebhookWorkerDelivers(t *testing.T) {
	delivered := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		delivered <- r.URL.Path
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := NewWebhook(webhookConfig(server.URL), log.NewLogger("error"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	w.KeypadUpdate(1, statusFixture())

	select {
	case path := <-delivered:
		assert.Equal(t, "/app-1/update", path)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never delivered the queued item")
	}
}
