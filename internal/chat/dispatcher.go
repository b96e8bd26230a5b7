package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/instrumentation"
	"github.com/teemow/calmate/internal/logging"
)

// Completer sends chat completion requests. *openai.Client implements it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Tool is a function the model may call.
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition

	// Call runs the tool with the raw JSON arguments chosen by the model and
	// returns a JSON-serializable result.
	Call func(ctx context.Context, arguments string) (interface{}, error)
}

func (t Tool) declaration() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		},
	}
}

// toolError is what the model sees when a tool call could not be served.
type toolError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// DispatcherConfig holds the dependencies of a Dispatcher.
type DispatcherConfig struct {
	Client Completer
	Model  string
	Tools  []Tool

	// Optional
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
	Validator *validator.Validate
}

// Dispatcher answers chat transcripts, executing tool calls requested by the model.
type Dispatcher struct {
	client   Completer
	model    string
	tools    []Tool
	byName   map[string]Tool
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	validate *validator.Validate
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("chat completion client is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	byName := make(map[string]Tool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		if t.Name == "" || t.Call == nil {
			return nil, fmt.Errorf("tool %q is incomplete", t.Name)
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		byName[t.Name] = t
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New(validator.WithRequiredStructEnabled())
	}

	return &Dispatcher{
		client:   cfg.Client,
		model:    cfg.Model,
		tools:    cfg.Tools,
		byName:   byName,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		validate: cfg.Validator,
	}, nil
}

// Respond returns the assistant's reply to transcript.
func (d *Dispatcher) Respond(ctx context.Context, transcript []Message) (string, error) {
	if err := d.validate.Struct(Request{Messages: transcript}); err != nil {
		return "", apperror.InvalidInput("invalid transcript: %v", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(transcript)+4)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt,
	})
	for _, m := range transcript {
		messages = append(messages, m.toOpenAI())
	}

	declarations := make([]openai.Tool, 0, len(d.tools))
	for _, t := range d.tools {
		declarations = append(declarations, t.declaration())
	}

	// awaitingToolResult
	req := openai.ChatCompletionRequest{
		Model:    d.model,
		Messages: messages,
	}
	if len(declarations) > 0 {
		req.Tools = declarations
		req.ToolChoice = "auto"
	}
	first, err := d.complete(ctx, req)
	if err != nil {
		return "", err
	}
	if len(first.ToolCalls) == 0 {
		return strings.TrimSpace(first.Content), nil
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		ToolCalls: first.ToolCalls,
	})
	for _, call := range first.ToolCalls {
		content, err := d.invoke(ctx, call)
		if err != nil {
			return "", err
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    content,
			Name:       call.Function.Name,
			ToolCallID: call.ID,
		})
	}

	// awaitingFinalText
	final, err := d.complete(ctx, openai.ChatCompletionRequest{
		Model:    d.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(final.Content), nil
}

// complete sends one chat completion request and returns the first choice.
func (d *Dispatcher) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionMessage, error) {
	ctx, span := instrumentation.StartLLMSpan(ctx, d.model)
	start := time.Now()

	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("response contained no choices")
	}

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	d.metrics.RecordLLMRequest(ctx, d.model, status, time.Since(start))

	if err != nil {
		instrumentation.EndSpan(span, err)
		return openai.ChatCompletionMessage{}, apperror.Upstream(err, "chat completion failed")
	}

	msg := resp.Choices[0].Message
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrToolCalls, len(msg.ToolCalls)))
	instrumentation.EndSpan(span, nil)
	return msg, nil
}

// invoke runs one tool call and returns the JSON content fed back to the model.
// Only upstream failures are returned as errors.
func (d *Dispatcher) invoke(ctx context.Context, call openai.ToolCall) (string, error) {
	name := call.Function.Name
	logger := d.logger.With(logging.Tool(name))

	tool, ok := d.byName[name]
	if !ok {
		logger.Warn("model requested an unknown tool")
		return encode(toolError{Error: fmt.Sprintf("Unknown function %s", name)})
	}

	result, err := tool.Call(ctx, call.Function.Arguments)
	if err != nil {
		kind := apperror.KindOf(err)
		if kind == apperror.KindUpstream {
			logger.Error("tool call failed", logging.Err(err))
			return "", err
		}
		logger.Debug("tool call rejected", logging.ErrorKind(string(kind)), logging.Err(err))
		return encode(toolError{Error: err.Error(), Kind: string(kind)})
	}

	logger.Debug("tool call completed")
	return encode(result)
}

func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", apperror.Upstream(err, "failed to encode tool result")
	}
	return string(b), nil
}
