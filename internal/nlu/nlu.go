// Package nlu answers free-form questions with a chat completion model.
package nlu

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const systemPrompt = `
You are J.A.R.V.I.S., a voice assistant. Your answer is read aloud by a
speech synthesizer.

RULES:
1. Answer in one or two short sentences.
2. Plain text only. No markdown, lists, code or URLs.
3. Address the user as "sir".
4. If you do not know, say so briefly. Never invent facts.
`

const DefaultModel = openai.ChatModelGPT5Nano

var ErrEmptyAnswer = errors.New("empty answer")

type Config struct {
	APIKey  string
	Model   string
	BaseURL string       // optional, for compatible endpoints
	Client  *http.Client // optional, e.g. through a proxy
}

type Answerer struct {
	client openai.Client
	model  openai.ChatModel
}

// New builds an Answerer. extra options are applied last.
func New(cfg Config, extra ...option.RequestOption) *Answerer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Client != nil {
		opts = append(opts, option.WithHTTPClient(cfg.Client))
	}

	opts = append(opts, extra...)

	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	return &Answerer{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (a *Answerer) Answer(ctx context.Context, question string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(question),
		},
		Model: a.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := speakable(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyAnswer
	}

	log.Debug("Answered", "question", question, "answer", content)
	return content, nil
}

var markdown = strings.NewReplacer("**", "", "__", "", "`", "", "#", "")

// speakable strips formatting a speech synthesizer would read out.
func speakable(s string) string {
	return strings.Join(strings.Fields(markdown.Replace(s)), " ")
}
