package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Part is one uploaded document handed to the extraction collaborator:
// receipt images or PDFs plus an optional claim form.
type Part struct {
	MimeType string
	Data     []byte
	Name     string
}

// Client is the external extraction collaborator. It sends the receipt set
// and claim form to a vision model under a fixed audit-policy profile and
// returns one text blob structured per the four-phase marker contract.
//
// The core depends only on that marker contract, not on how extraction is
// performed.
type Client struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewClient creates a new extraction client.
func NewClient(apiKey, model string, logger *zap.Logger) *Client {
	return &Client{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Analyze runs the four-phase audit over the uploaded parts and returns the
// raw marker-delimited analysis text. PDF parts are rasterized page by page
// before upload; plain-text parts are inlined.
func (c *Client) Analyze(ctx context.Context, parts []Part) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("no documents to analyze")
	}

	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: auditInstructions,
		},
	}

	for _, part := range parts {
		converted, err := c.toImageParts(part)
		if err != nil {
			c.logger.Error("Failed to prepare document for extraction",
				zap.String("name", part.Name), zap.Error(err))
			return "", fmt.Errorf("failed to prepare %s: %w", part.Name, err)
		}
		contentParts = append(contentParts, converted...)
	}

	c.logger.Info("Calling extraction model",
		zap.Int("documents", len(parts)),
		zap.Int("content_parts", len(contentParts)))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
		MaxTokens:   4096,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a meticulous financial auditor reviewing staff reimbursement claims. Follow the phase structure exactly and keep every marker on its own line.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
	})
	if err != nil {
		c.logger.Error("Extraction model call failed", zap.Error(err))
		return "", fmt.Errorf("extraction call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from extraction model")
	}

	return resp.Choices[0].Message.Content, nil
}

// toImageParts converts one uploaded document into chat message parts.
func (c *Client) toImageParts(part Part) ([]openai.ChatMessagePart, error) {
	switch {
	case part.MimeType == "application/pdf":
		pages, err := pdfToJPEGPages(part.Data, maxPDFPages)
		if err != nil {
			return nil, err
		}
		out := make([]openai.ChatMessagePart, 0, len(pages))
		for _, page := range pages {
			out = append(out, imagePart("image/jpeg", page))
		}
		return out, nil

	case strings.HasPrefix(part.MimeType, "image/"):
		return []openai.ChatMessagePart{imagePart(part.MimeType, part.Data)}, nil

	case strings.HasPrefix(part.MimeType, "text/"):
		return []openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("Claim form %s:\n%s", part.Name, string(part.Data)),
		}}, nil

	default:
		return nil, fmt.Errorf("unsupported document type %s", part.MimeType)
	}
}

func imagePart(mimeType string, data []byte) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
			Detail: openai.ImageURLDetailHigh,
		},
	}
}

// auditInstructions is the fixed policy profile sent with every run. The
// response must use the marker contract the parser understands.
const auditInstructions = `Review the attached reimbursement claim in four phases.
Wrap each phase in its markers, e.g. [PHASE1] ... [/PHASE1].

[PHASE1] Inventory every receipt: store, date, itemized amounts. Include a
labelled line "Store: <merchant>". [/PHASE1]
[PHASE2] Cross-check the claim form against the receipts. Include labelled
lines "Form amount: $X" and "Receipt amount: $Y". Say plainly if a receipt
is missing, illegible, or unrelated to the claim. [/PHASE2]
[PHASE3] Evaluate against policy: amounts over $300 and receipts older than
30 days require escalation; illegible or unrelated receipts are a critical
discrepancy. [/PHASE3]
[PHASE4] State the final decision. Include exactly one payable amount as a
dollar figure (e.g. $42.50) and these labelled lines:
Staff: <full name>
Location: <client location>
Category: <expense category>
Receipt date: <YYYY-MM-DD>
[/PHASE4]`
