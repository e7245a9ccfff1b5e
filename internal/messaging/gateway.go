// Package messaging defines the outbound gateway used for both automated
// drip dispatch and manual operator dispatch. Channel delivery mechanics
// (SMS, Messenger) live behind the Gateway interface.
package messaging

import (
	"context"
	"log/slog"

	"github.com/leadkit/drip/internal/logging"
)

// Gateway sends one outbound follow-up for a lead. A returned error means
// the send must be treated as failed: callers must not stamp the lead.
type Gateway interface {
	Send(ctx context.Context, leadID, text string) error
}

// LogGateway is a fallback gateway that only logs outbound messages. It is
// used when no delivery channel is configured.
type LogGateway struct {
	log *slog.Logger
}

// NewLogGateway creates a log-only gateway.
func NewLogGateway() *LogGateway {
	return &LogGateway{log: logging.WithComponent("messaging.log")}
}

// Send logs the message and reports success.
func (g *LogGateway) Send(_ context.Context, leadID, text string) error {
	g.log.Info("outbound message",
		slog.String("lead_id", leadID),
		slog.String("text", text),
	)
	return nil
}
