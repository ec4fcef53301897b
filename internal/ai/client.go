// Package ai extracts structured receipt and claim data using OpenAI models.
// Receipt photos go through a vision prompt; voice transcripts go through a
// chat prompt constrained to the receipt's exact item names.
package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/smartbill/smartbill/internal/models"
)

// Client wraps the OpenAI API for receipt OCR and transcript parsing.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a client using the given API key and model.
func New(apiKey, model string) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{api: openai.NewClient(apiKey), model: model}
}

// ReceiptItem is one line item extracted from a receipt photo.
type ReceiptItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Receipt is the structured result of OCR on a receipt photo.
type Receipt struct {
	StoreName string          `json:"store_name"`
	Total     decimal.Decimal `json:"total"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Items     []ReceiptItem   `json:"items"`
	RawText   string          `json:"raw_text"`
}

const receiptPrompt = `Extract the line items from this receipt photo.
Respond with JSON: {"store_name": string, "total": number, "subtotal": number,
"tax": number, "raw_text": string, "items": [{"name": string, "price": number,
"quantity": integer}]}. "price" is the price PER UNIT. "raw_text" is the full
receipt text as printed. Use 1 for quantity when the receipt shows none.`

// ParseReceipt runs OCR on a receipt photo. imageData is the raw image bytes;
// mimeType is e.g. "image/jpeg".
func (c *Client) ParseReceipt(ctx context.Context, imageData []byte, mimeType string) (*Receipt, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: receiptPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("receipt OCR failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("receipt OCR returned no choices")
	}

	receipt := &Receipt{}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt OCR response: %w", err)
	}

	return receipt, nil
}

// ParseTranscript extracts participant claims from a voice narration.
// itemNames are the exact expanded item names; memberNames are the contact
// group members to match against, if any. Returns nil with no error when the
// model's answer cannot be decoded: a garbled transcript degrades to an
// unassigned expense rather than failing the upload.
func (c *Client) ParseTranscript(ctx context.Context, transcript string, itemNames, memberNames []string) ([]models.ExpenseParticipant, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: TranscriptPrompt(itemNames, memberNames)},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("transcript parsing failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("transcript parsing returned no choices")
	}

	participants, err := DecodeParticipants([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		slog.Warn("Transcript response was not decodable, treating expense as unassigned", "error", err)
		return nil, nil
	}

	return participants, nil
}

// TranscriptPrompt builds the system prompt for claim extraction.
func TranscriptPrompt(itemNames, memberNames []string) string {
	var b strings.Builder
	b.WriteString("You extract who ate what from a spoken bill narration.\n")
	b.WriteString("Respond with JSON: {\"participants\": [{\"name\": string, \"items\": [string]}]}.\n")
	b.WriteString("Item names MUST be copied exactly from this list:\n")
	for _, name := range itemNames {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	if len(memberNames) > 0 {
		b.WriteString("Prefer these participant names when the speaker clearly means one of them:\n")
		for _, name := range memberNames {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}
	b.WriteString("When the speaker refers to themselves (\"I\", \"me\", \"my\"), use the name \"me\".\n")
	b.WriteString("Only include items that were actually claimed.")
	return b.String()
}

// DecodeParticipants decodes the model's claim JSON.
func DecodeParticipants(data []byte) ([]models.ExpenseParticipant, error) {
	var payload struct {
		Participants []struct {
			Name  string   `json:"name"`
			Items []string `json:"items"`
		} `json:"participants"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	participants := make([]models.ExpenseParticipant, 0, len(payload.Participants))
	for _, p := range payload.Participants {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		participants = append(participants, models.ExpenseParticipant{
			Name:  p.Name,
			Items: p.Items,
		})
	}

	return participants, nil
}
