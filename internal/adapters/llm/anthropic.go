package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 2048
)

// AnthropicModel implements ports.ChatModel over the Anthropic messages API
// using its native tool-use protocol.
type AnthropicModel struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicModel(apiKey, model string) *AnthropicModel {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicModel{client: &client, model: model}
}

func (m *AnthropicModel) ModelID() string { return m.model }

func (m *AnthropicModel) Invoke(ctx context.Context, messages []domain.Message, tools []*domain.Tool) (domain.Message, error) {
	msgs, system := toAnthropicMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return domain.Message{}, fmt.Errorf("anthropic message: %w", err)
	}

	out := domain.Message{Role: domain.RoleAssistant}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += b.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: json.RawMessage(b.Input),
			})
		}
	}
	return out, nil
}

// toAnthropicMessages splits the history into the system blocks and the
// conversation turns. Tool results become tool_result blocks inside a user
// turn, which is how the messages API pairs them with tool_use requests.
func toAnthropicMessages(messages []domain.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var result []anthropic.MessageParam
	var system []anthropic.TextBlockParam

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case domain.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case domain.RoleAssistant:
			if msg.HasToolCalls() {
				var blocks []anthropic.ContentBlockParamUnion
				if msg.Content != "" {
					blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
				}
				for _, tc := range msg.ToolCalls {
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    tc.ID,
							Name:  tc.Name,
							Input: tc.Arguments,
						},
					})
				}
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			} else {
				result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			}
		case domain.RoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for _, tr := range msg.ToolResults {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: tr.ToolCallID,
						IsError:   anthropic.Bool(tr.IsError),
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: tr.Content}},
						},
					},
				})
			}
			result = append(result, anthropic.NewUserMessage(blocks...))
		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result, system
}

func toAnthropicTools(tools []*domain.Tool) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Parameters.Properties,
					Required:   t.Parameters.Required,
				},
			},
		}
	}
	return result
}

var _ ports.ChatModel = (*AnthropicModel)(nil)
