package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leadkit/drip/internal/logging"
)

// Config holds Telegram gateway configuration.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	// ChatID is the operator chat all outbound follow-ups are relayed to.
	ChatID string `yaml:"chat_id"`
}

// DefaultConfig returns a disabled Telegram configuration.
func DefaultConfig() *Config {
	return &Config{Enabled: false}
}

// Validate checks required fields when the gateway is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BotToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if c.ChatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	return nil
}

// Gateway delivers outbound follow-ups to the operator chat, prefixed with
// the lead ID so the operator can tell threads apart.
type Gateway struct {
	client *Client
	chatID string
	log    *slog.Logger
}

// NewGateway creates a Telegram-backed messaging gateway.
func NewGateway(cfg *Config, opts ...ClientOption) *Gateway {
	return &Gateway{
		client: NewClient(cfg.BotToken, opts...),
		chatID: cfg.ChatID,
		log:    logging.WithComponent("messaging.telegram"),
	}
}

// Send implements messaging.Gateway.
func (g *Gateway) Send(ctx context.Context, leadID, text string) error {
	if err := g.client.SendMessage(ctx, g.chatID, fmt.Sprintf("[%s] %s", leadID, text)); err != nil {
		return fmt.Errorf("telegram send for lead %s: %w", leadID, err)
	}

	g.log.Debug("message delivered",
		slog.String("lead_id", leadID),
		slog.String("chat_id", g.chatID),
	)
	return nil
}
