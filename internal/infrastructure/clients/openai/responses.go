package openai

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

// outputText returns the first non-empty output_text block
func (e responseEnvelope) outputText() string {
	for _, out := range e.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				return content.Text
			}
		}
	}
	return ""
}

func buildResponsesPayload(model, systemPrompt, userPrompt string) map[string]interface{} {
	input := make([]map[string]string, 0, 2)
	if systemPrompt != "" {
		input = append(input, map[string]string{"role": "system", "content": systemPrompt})
	}
	input = append(input, map[string]string{"role": "user", "content": userPrompt})

	return map[string]interface{}{
		"model":             model,
		"input":             input,
		"temperature":       0.7,
		"max_output_tokens": 800,
	}
}
