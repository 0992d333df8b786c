// Package ai talks to the chat-completion provider behind the assistant.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

var (
	ErrNotConfigured = errors.New("ai provider is not configured")
	ErrEmptyReply    = errors.New("ai provider returned no choices")
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

const SystemPrompt = `You are a supportive mental wellness assistant in the MindWell app.
Follow these guidelines:
1. Be empathetic and respond without judgement.
2. Use clear, simple language.
3. Base suggestions on evidence-based techniques such as CBT, mindfulness and breathing exercises.
4. Encourage healthy coping strategies.
5. Suggest talking to a licensed professional when a topic goes beyond self-help.
6. If the user mentions self-harm, suicide or being in danger, urge them to contact local emergency services or a crisis line right away.
Remember that you are not a replacement for professional help.`

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type Reply struct {
	Content string
	Model   string
}

// Completer produces the assistant's next message for a conversation.
// history is oldest first and does not include the system prompt.
type Completer interface {
	Complete(ctx context.Context, history []Message) (*Reply, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	MaxRetries  int
}

type OpenAI struct {
	client openai.Client
	cfg    Config
}

var _ Completer = (*OpenAI)(nil)

func NewOpenAI(cfg Config) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), cfg: cfg}
}

// BuildMessages puts the system prompt in front of history.
func BuildMessages(history []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	out = append(out, openai.SystemMessage(SystemPrompt))
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (o *OpenAI) Complete(ctx context.Context, history []Message) (*Reply, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       o.cfg.Model,
		Messages:    BuildMessages(history),
		MaxTokens:   openai.Int(o.cfg.MaxTokens),
		Temperature: openai.Float(o.cfg.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyReply
	}
	model := completion.Model
	if model == "" {
		model = o.cfg.Model
	}
	return &Reply{Content: strings.TrimSpace(completion.Choices[0].Message.Content), Model: model}, nil
}

// Unavailable is used when no API key is configured. Every call fails, so
// callers fall back to their canned reply.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, []Message) (*Reply, error) {
	return nil, ErrNotConfigured
}
