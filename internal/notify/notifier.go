// Package notify turns domain events into outbound notifications. Real
// delivery is stubbed; the handlers log, and the webhook/email wiring is
// gated on configuration.
package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
)

// Notifier handles emitting notifications for domain events.
type Notifier struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotifier creates the notifier.
func NewNotifier(logger *zap.Logger, cfg config.NotificationConfig) *Notifier {
	return &Notifier{logger: logger, cfg: cfg}
}

// Register subscribes the notifier to every ticket event.
func (n *Notifier) Register(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	dispatcher.Subscribe(events.EventNoteAdded, n.handleNoteAdded)
	dispatcher.Subscribe(events.EventNoteEdited, n.handleNoteChanged)
	dispatcher.Subscribe(events.EventNoteDeleted, n.handleNoteChanged)
}

func (n *Notifier) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailStub(ctx, event)
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *Notifier) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *Notifier) handleNoteAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("NoteAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailStub(ctx, event)
	return nil
}

func (n *Notifier) handleNoteChanged(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *Notifier) sendEmailStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *Notifier) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
