package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIModel implements ports.ChatModel over the OpenAI chat completions
// API using its native function-calling protocol.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates the adapter. baseURL overrides the API endpoint,
// which is how OpenAI-compatible gateways are pointed at.
func NewOpenAIModel(apiKey, model, baseURL string) *OpenAIModel {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIModel{client: &client, model: model}
}

func (m *OpenAIModel) ModelID() string { return m.model }

// Invoke sends the full history plus tool schemas and maps the completion
// back onto the domain message shape.
func (m *OpenAIModel) Invoke(ctx context.Context, messages []domain.Message, tools []*domain.Tool) (domain.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.Message{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Message{}, fmt.Errorf("openai chat completion: empty choices")
	}

	choice := resp.Choices[0].Message
	out := domain.Message{
		Role:    domain.RoleAssistant,
		Content: choice.Content,
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func toOpenAIMessages(messages []domain.Message) []openai.ChatCompletionMessageParamUnion {
	var result []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case domain.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case domain.RoleAssistant:
			if msg.HasToolCalls() {
				toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					}
				}
				result = append(result, openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls},
				})
			} else {
				result = append(result, openai.AssistantMessage(msg.Content))
			}
		case domain.RoleTool:
			// One wire message per tool result, keyed by the call ID.
			for _, tr := range msg.ToolResults {
				result = append(result, openai.ToolMessage(tr.Content, tr.ToolCallID))
			}
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

func toOpenAITools(tools []*domain.Tool) []openai.ChatCompletionToolParam {
	result := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		result[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters: shared.FunctionParameters{
					"type":       t.Parameters.Type,
					"properties": t.Parameters.Properties,
					"required":   t.Parameters.Required,
				},
			},
		}
	}
	return result
}

var _ ports.ChatModel = (*OpenAIModel)(nil)
