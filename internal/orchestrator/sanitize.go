package orchestrator

import "github.com/firebase/genkit/go/ai"

// sanitizeResponseMessages drops assistant messages carrying a tool
// request that never received a matching response. Persisting such a
// message would corrupt history on replay: the model would see a call
// it can never resolve.
func sanitizeResponseMessages(messages []*ai.Message) []*ai.Message {
	resolved := make(map[string]bool)
	for _, m := range messages {
		for _, p := range m.Content {
			if p.Kind == ai.PartToolResponse && p.ToolResponse != nil {
				resolved[toolCallKey(p.ToolResponse.Ref, p.ToolResponse.Name)] = true
			}
		}
	}

	out := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		if m.Role == ai.RoleModel && hasUnresolvedCall(m, resolved) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func hasUnresolvedCall(m *ai.Message, resolved map[string]bool) bool {
	for _, p := range m.Content {
		if p.Kind != ai.PartToolRequest || p.ToolRequest == nil {
			continue
		}
		if !resolved[toolCallKey(p.ToolRequest.Ref, p.ToolRequest.Name)] {
			return true
		}
	}
	return false
}

// toolCallKey matches requests to responses by ref when the model
// assigns one, by tool name otherwise.
func toolCallKey(ref, name string) string {
	if ref != "" {
		return ref
	}
	return name
}
