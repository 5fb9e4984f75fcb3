// Package notify pushes rendered reports to the office chat so the daily
// banking log lands in the channel without a manual paste.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Config holds the Lark app credentials and target.
type Config struct {
	AppID         string
	AppSecret     string
	ReceiveIDType string // chat_id, open_id, email
	ReceiveID     string
}

// Notifier sends report text to a Lark chat.
type Notifier struct {
	client *lark.Client
	cfg    Config
	logger *zap.Logger
}

// NewNotifier creates a Lark notifier.
func NewNotifier(cfg Config, logger *zap.Logger) *Notifier {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithEnableTokenCache(true),
	)

	return &Notifier{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// SendReport posts the rendered report as a text message and returns the
// message id.
func (n *Notifier) SendReport(ctx context.Context, text string) (string, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(n.cfg.ReceiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.cfg.ReceiveID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send report message",
			zap.String("receive_id", n.cfg.ReceiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send report message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("Lark API returned failure",
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	n.logger.Info("Report pushed to chat", zap.String("message_id", messageID))
	return messageID, nil
}
