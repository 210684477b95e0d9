package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mjahr/smartalarmserver/internal/config"
	"github.com/mjahr/smartalarmserver/internal/log"
	"github.com/mjahr/smartalarmserver/internal/metrics"
	"github.com/mjahr/smartalarmserver/internal/state"
)

// Webhook posts notification payloads to a configured HTTP endpoint. The
// dispatcher's calls only enqueue; a single worker drains the queue and
// performs the network I/O so the panel session never waits on a slow
// downstream.
type Webhook struct {
	cfg    *config.WebhookConfig
	log    *log.Logger
	client *http.Client
	queue  chan webhookItem

	repeatInterval time.Duration
	stopped        chan struct{}

	// delivery dedup, touched only by the worker
	lastPath    string
	lastPayload string
	lastTime    time.Time
}

type webhookItem struct {
	path    string
	payload string
}

func NewWebhook(cfg *config.WebhookConfig, logger *log.Logger) *Webhook {
	return &Webhook{
		cfg: cfg,
		log: logger,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		queue:          make(chan webhookItem, cfg.QueueSize),
		repeatInterval: time.Duration(cfg.RepeatUpdateInterval) * time.Second,
		stopped:        make(chan struct{}),
	}
}

// Start launches the delivery worker. The worker exits promptly once ctx is
// cancelled; queued items are not flushed first.
func (w *Webhook) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Webhook) run(ctx context.Context) {
	w.log.Info("Webhook worker starting, posting to %s/%s", w.cfg.URLBase, w.cfg.AppID)
	defer close(w.stopped)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Webhook worker exiting")
			return
		case item := <-w.queue:
			w.post(item)
		}
	}
}

// enqueue serializes the payload and offers it to the queue without ever
// blocking the caller. A full queue evicts exactly one oldest item; the
// newest item is never the one dropped.
func (w *Webhook) enqueue(path string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.log.Error("Failed to marshal webhook payload for /%s: %v", path, err)
		return
	}

	item := webhookItem{path: path, payload: string(data)}
	for {
		select {
		case w.queue <- item:
			w.log.Debug("Enqueued webhook request to /%s", path)
			return
		default:
		}

		select {
		case evicted := <-w.queue:
			metrics.WebhookEvictions.Inc()
			w.log.Warning("Webhook queue full, dropping oldest item for /%s, size=%d", evicted.path, len(w.queue))
		default:
		}
	}
}

// post delivers one item synchronously. Runs only on the worker goroutine.
func (w *Webhook) post(item webhookItem) {
	now := time.Now()
	if item.path == w.lastPath && item.payload == w.lastPayload &&
		now.Sub(w.lastTime) < w.repeatInterval {
		metrics.WebhookSuppressed.Inc()
		w.log.Debug("Skipping repeat update to /%s after %s", item.path, now.Sub(w.lastTime))
		return
	}

	url := fmt.Sprintf("%s/%s/%s?access_token=%s",
		w.cfg.URLBase, w.cfg.AppID, item.path, w.cfg.AccessToken)

	resp, err := w.client.Post(url, "application/json", strings.NewReader(item.payload))
	if err != nil {
		metrics.WebhookFailures.Inc()
		w.log.Error("Error posting webhook to %s: %v", url, err)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		w.log.Debug("Posted webhook to /%s", item.path)
		metrics.WebhookDeliveries.Inc()
		w.lastPath = item.path
		w.lastPayload = item.payload
		w.lastTime = now
	default:
		metrics.WebhookFailures.Inc()
		w.log.Error("Problem posting webhook; url: %s payload: %s status: %d",
			url, item.payload, resp.StatusCode)
	}
}

func (w *Webhook) KeypadUpdate(partition int, status state.PartitionStatus) {
	w.enqueue("update", status)
}

func (w *Webhook) PartitionStatus(partition int, previousArmed, armed bool, status string) {
	w.enqueue("partition/"+strconv.Itoa(partition), map[string]interface{}{
		"partition": partition,
		"status":    status,
		"armed":     armed,
	})
}

func (w *Webhook) ArmedAway(user string) {
	w.postPanelUpdate("ARMED_AWAY", "Security system armed away by "+user, user)
}

func (w *Webhook) ArmedHome(user string) {
	w.postPanelUpdate("ARMED_HOME", "Security system armed home by "+user, user)
}

func (w *Webhook) DisarmedAway(user string) {
	w.postPanelUpdate("DISARMED_AWAY", "Security system disarmed from away status by "+user, user)
}

func (w *Webhook) DisarmedHome(user string) {
	w.postPanelUpdate("DISARMED_HOME", "Security system disarmed from home status by "+user, user)
}

func (w *Webhook) postPanelUpdate(status, message, user string) {
	w.enqueue("panel", map[string]string{
		"status":  status,
		"message": message,
		"user":    user,
	})
}

func (w *Webhook) AlarmTriggered(zone int, zoneName string) {
	w.postAlarm("IN_ALARM", zone, zoneName)
}

func (w *Webhook) AlarmCleared(zone int, zoneName string) {
	w.postAlarm("ALARM_IN_MEMORY", zone, zoneName)
}

func (w *Webhook) postAlarm(status string, zone int, zoneName string) {
	path := fmt.Sprintf("alarm/%d/%s", zone, status)
	w.enqueue(path, map[string]string{
		"message":  fmt.Sprintf("Alarm %s in %s", status, zoneName),
		"zonename": zoneName,
	})
}
