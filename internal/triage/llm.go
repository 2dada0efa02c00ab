package triage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrGenerationFailed covers provider errors, rate limits, and empty
// completions. Callers turn it into a clean user-facing error instead of
// surfacing provider internals.
var ErrGenerationFailed = errors.New("ai could not generate an answer")

const systemPrompt = "You are a helpful AI assistant working at a hospital.\n" +
	"Your task is to give advice to the patient on what to do, in a long and explained format.\n" +
	"Speak in simple, non-technical language and be caring and conversational.\n" +
	"At the end of your message, return a list of doctor IDs who match the patient's issue, in the format: [1, 2]"

// Generator produces model completions for the triage pipeline.
type Generator interface {
	// Generate returns the raw completion text for the composed prompt,
	// optionally attaching an inline image.
	Generate(ctx context.Context, prompt string, image *Attachment) (string, error)
	// Title names a new chat session after its first message.
	Title(ctx context.Context, message string) (string, error)
}

type OpenAIGenerator struct {
	client      openai.Client
	model       string
	visionModel string
}

func NewOpenAIGenerator(apiKey, model, visionModel string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		visionModel: visionModel,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, image *Attachment) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
	}

	// A vision-capable model is required whenever an image is attached.
	model := g.model
	if image.Present() {
		model = g.visionModel

		dataURL := fmt.Sprintf("data:%s;base64,%s",
			http.DetectContentType(image.Data),
			base64.StdEncoding.EncodeToString(image.Data))

		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		}
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: parts,
				},
			},
		})
	} else {
		messages = append(messages, openai.UserMessage(prompt))
	}

	res, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    model,
	})
	if err != nil {
		slog.Error("openai error: chat completions failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	return res.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Title(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	res, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf("Give the small title for this message in one line:\n%s", message)),
		},
		Model: g.model,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	title := res.Choices[0].Message.Content
	replacer := strings.NewReplacer("\n", "", "\r", "", "*", "")
	return replacer.Replace(title), nil
}
