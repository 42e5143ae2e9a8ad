// Package explain turns validation diagnostics into text an accounts payable
// clerk can act on.
//
// Every diagnostic code has a fixed template citing the X12 segment at fault.
// When an OpenAI client is configured the templated text is handed to the
// model for a friendlier rewrite; any API failure falls back to the template.
package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"invoiceagent/internal/invoice"
	"invoiceagent/internal/logger"
	"invoiceagent/pkg/models"
)

// NoErrors is the explanation for an empty diagnostic list.
const NoErrors = "No errors to explain."

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4oMini

// ChatCompleter is the part of the OpenAI client the explainer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Explainer renders diagnostics, optionally through a chat model.
type Explainer struct {
	client ChatCompleter
	model  string
	log    zerolog.Logger
}

// New creates an explainer. A nil client renders templates only.
func New(client ChatCompleter, model string) *Explainer {
	if model == "" {
		model = DefaultModel
	}
	return &Explainer{
		client: client,
		model:  model,
		log:    logger.WithComponent("explain"),
	}
}

// NewFromAPIKey creates an OpenAI-backed explainer, or a template-only one
// when apiKey is empty.
func NewFromAPIKey(apiKey, model string) *Explainer {
	if apiKey == "" {
		return New(nil, model)
	}
	return New(openai.NewClient(apiKey), model)
}

// Template renders one line per diagnostic.
func Template(diags []models.Diagnostic) string {
	if len(diags) == 0 {
		return NoErrors
	}

	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		switch d.Code {
		case invoice.CodeTotals:
			parts = append(parts, "- **TDS totals mismatch**: In X12 810, `TDS` is the invoice total (often N2 implied cents). "+
				"Sum of line extended amounts plus taxes/charges must equal TDS. "+d.Message)
		case invoice.CodeNoLines:
			parts = append(parts, "- **IT1 missing**: At least one line item is required.")
		case invoice.CodeMissingNumber:
			parts = append(parts, "- **BIG02 missing**: Invoice number not found in BIG segment.")
		case invoice.CodeMissingDate:
			parts = append(parts, "- **BIG01 missing**: Invoice date not found in BIG segment.")
		case invoice.CodeLineCount:
			parts = append(parts, "- **CTT mismatch**: CTT01 should equal count of IT1 lines.")
		default:
			parts = append(parts, fmt.Sprintf("- %s: %s", d.Code, d.Message))
		}
	}
	return strings.Join(parts, "\n")
}

// Explain describes diags. snippet is optional raw EDI given to the model as context.
func (e *Explainer) Explain(ctx context.Context, diags []models.Diagnostic, snippet string) string {
	text := Template(diags)
	if len(diags) == 0 || e == nil || e.client == nil {
		return text
	}

	reply, err := e.complete(ctx, text, snippet)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("model", e.model).
			Strs("codes", invoice.Codes(diags)).
			Msg("Explanation request failed, using template")
		return text
	}
	return reply
}

const systemPrompt = `You help accounts payable clerks fix rejected X12 810 invoices.
Rewrite the validation findings you are given as short, plain-language bullet points.
Name the X12 segment and element to correct. Do not invent values that are not in the input.`

func (e *Explainer) complete(ctx context.Context, findings, snippet string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("Validation findings:\n")
	prompt.WriteString(findings)
	if snippet != "" {
		prompt.WriteString("\n\nInvoice EDI excerpt:\n")
		prompt.WriteString(snippet)
	}

	e.log.Debug().
		Int("prompt_length", prompt.Len()).
		Str("model", e.model).
		Msg("Sending explanation request")

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt.String(),
			},
		},
		MaxTokens: 500,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices from model")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty response from model")
	}
	return content, nil
}
