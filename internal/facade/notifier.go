package facade

import (
	"log/slog"
	"slices"

	"github.com/auriora/timelocker/internal/config"
	"github.com/auriora/timelocker/internal/status"
)

// Notifier is the status-bus sink the composition root wires in for
// external notification (spec.md §4.12's "notifier"). It filters events
// against the configured on_events list and logs the would-be delivery;
// wiring an actual SMTP/webhook transport is a CLI-adapter-level concern
// (spec.md's Non-goals exclude specifying a concrete transport), but the
// event-filtering and addressing logic lives here so that swapping in a
// real transport later only touches deliver().
type Notifier struct {
	cfg    config.NotificationsSection
	logger *slog.Logger
}

// NewNotifier constructs a Notifier bound to the configuration's
// notifications section.
func NewNotifier(cfg config.NotificationsSection, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{cfg: cfg, logger: logger}
}

// HandleStatus implements status.Sink.
func (n *Notifier) HandleStatus(e status.OperationStatus) {
	if !n.cfg.Enabled {
		return
	}
	if !n.shouldNotify(e) {
		return
	}
	n.deliver(e)
}

func (n *Notifier) shouldNotify(e status.OperationStatus) bool {
	if len(n.cfg.OnEvents) == 0 {
		return e.Status == status.StatusError || e.Status == status.StatusCritical
	}
	return slices.Contains(n.cfg.OnEvents, string(e.Status))
}

func (n *Notifier) deliver(e status.OperationStatus) {
	n.logger.Info("notifier: delivering event",
		"email", n.cfg.Email,
		"operation_id", e.OperationID,
		"operation_type", e.OperationType,
		"status", e.Status,
		"message", e.Message,
	)
}
