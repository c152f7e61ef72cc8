package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/provenance-service/internal/config"
	"github.com/spec-kit/provenance-service/internal/events"
)

// NotificationService forwards domain events to a configured webhook.
// Delivery is best-effort; a failed post never fails the request that
// produced the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	client     *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventBatchIssued, n.handleBatchIssued)
	n.dispatcher.Subscribe(events.EventScanRecorded, n.handleScanRecorded)
}

func (n *NotificationService) handleBatchIssued(ctx context.Context, event events.Event) error {
	n.logger.Info("BatchIssued", zap.String("batch_id", event.BatchID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleScanRecorded(ctx context.Context, event events.Event) error {
	n.logger.Info("ScanRecorded", zap.String("batch_id", event.BatchID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("webhook payload marshal failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook post failed",
			zap.String("url", n.cfg.WebhookURL),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook post rejected",
			zap.String("url", n.cfg.WebhookURL),
			zap.Int("status", resp.StatusCode))
	}
}
