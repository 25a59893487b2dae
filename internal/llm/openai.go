package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the OpenAI Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var messages []openai.ChatCompletionMessage
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}

	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if req.Constraint != nil {
		tool, err := constraintTool(req.Constraint)
		if err != nil {
			return nil, err
		}
		apiReq.Tools = []openai.Tool{tool}
		apiReq.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.Constraint.Name},
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	out := &CompletionResponse{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Content = choice.Message.Content
		out.FinishReason = string(choice.FinishReason)
		if len(choice.Message.ToolCalls) > 0 {
			out.Structured = choice.Message.ToolCalls[0].Function.Arguments
		}
	}
	return out, nil
}

// constraintTool builds a forced function tool whose single parameter is an
// array restricted to the constraint's vocabulary.
func constraintTool(c *Constraint) (openai.Tool, error) {
	if len(c.Vocabulary) == 0 {
		return openai.Tool{}, fmt.Errorf("constraint %q has an empty vocabulary", c.Name)
	}

	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selected": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": c.Vocabulary},
			},
		},
		"required": []string{"selected"},
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return openai.Tool{}, fmt.Errorf("marshalling constraint schema: %w", err)
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:       c.Name,
			Parameters: json.RawMessage(raw),
		},
	}, nil
}
