package openaichat

import (
	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/provider"
)

// translateRequest converts a provider.Request into the Chat Completions
// wire format. The instructions become the leading system message; tool
// turns become role "tool" messages carrying their call ID; the raw
// execution record on tool turns is deliberately not sent.
func translateRequest(req *provider.Request, model string, temperature *float64) chatCompletionRequest {
	cr := chatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		N:           1,
	}
	if req.Temperature != nil {
		cr.Temperature = req.Temperature
	}

	if req.Instructions != "" {
		cr.Messages = append(cr.Messages, chatMessage{
			Role:    "system",
			Content: req.Instructions,
		})
	}

	for _, turn := range req.History {
		cm := chatMessage{
			Role:       string(turn.Role),
			ToolCallID: turn.CallID,
		}
		if turn.Content != "" || len(turn.ToolCalls) == 0 {
			cm.Content = turn.Content
		}
		for _, tc := range turn.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, chatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: chatFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		cr.Messages = append(cr.Messages, cm)
	}

	for _, td := range req.Tools {
		cr.Tools = append(cr.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}

	return cr
}

// translateResponse converts the first choice of a Chat Completions reply
// into a provider.Reply. Tool call IDs missing from the backend reply are
// minted locally so results can always be correlated.
func translateResponse(resp *chatCompletionResponse) *provider.Reply {
	reply := &provider.Reply{
		Model: resp.Model,
		Turn:  api.Turn{Role: api.RoleAssistant},
	}

	if resp.Usage != nil {
		reply.InputTokens = resp.Usage.PromptTokens
		reply.OutputTokens = resp.Usage.CompletionTokens
	}

	if len(resp.Choices) == 0 {
		return reply
	}
	choice := resp.Choices[0]

	if s, ok := choice.Message.Content.(string); ok {
		reply.Turn.Content = s
	}

	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = api.NewCallID()
		}
		reply.Turn.ToolCalls = append(reply.Turn.ToolCalls, api.ToolCallRequest{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return reply
}
