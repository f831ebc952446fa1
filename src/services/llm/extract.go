package llm

import (
	"strings"

	"google.golang.org/genai"
)

// extractor inspects one known result shape. It reports ok only when
// the shape matched and yielded non-empty text.
type extractor func(result any) (string, bool)

// extractors is the ordered list of result shapes, most specific first.
// The order mirrors how backends have been observed to respond:
// the GenAI SDK response, {response:{text}}, {output:[...]},
// {candidates:[...]}, a bare string, and finally a lone text property.
var extractors = []extractor{
	fromGenAIResponse,
	fromNestedResponse,
	fromOutputList,
	fromCandidates,
	fromString,
	fromTextField,
}

// ExtractText walks the extractor list and returns the first non-empty
// text. No extractor matching is ErrEmptyResponse territory: the caller
// aborts the current utterance only.
func ExtractText(result any) (string, error) {
	for _, ex := range extractors {
		if text, ok := ex(result); ok {
			return text, nil
		}
	}
	return "", ErrEmptyResponse
}

func fromGenAIResponse(result any) (string, bool) {
	resp, ok := result.(*genai.GenerateContentResponse)
	if !ok || resp == nil {
		return "", false
	}
	return nonEmpty(resp.Text())
}

// {response: {text: "..."}} or {response: "..."}
func fromNestedResponse(result any) (string, bool) {
	m, ok := result.(map[string]any)
	if !ok {
		return "", false
	}
	switch inner := m["response"].(type) {
	case map[string]any:
		if text, ok := inner["text"].(string); ok {
			return nonEmpty(text)
		}
	case string:
		return nonEmpty(inner)
	}
	return "", false
}

// {output: [{content: "..."}]} or {output: [{content: [{text: "..."}]}]}
func fromOutputList(result any) (string, bool) {
	m, ok := result.(map[string]any)
	if !ok {
		return "", false
	}
	list, ok := m["output"].([]any)
	if !ok || len(list) == 0 {
		return "", false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return "", false
	}
	switch content := first["content"].(type) {
	case string:
		return nonEmpty(content)
	case []any:
		if len(content) > 0 {
			if part, ok := content[0].(map[string]any); ok {
				if text, ok := part["text"].(string); ok {
					return nonEmpty(text)
				}
			}
		}
	}
	return "", false
}

// {candidates: [{output: "..."}]} or {candidates: [{content: ...}]}
func fromCandidates(result any) (string, bool) {
	m, ok := result.(map[string]any)
	if !ok {
		return "", false
	}
	list, ok := m["candidates"].([]any)
	if !ok || len(list) == 0 {
		return "", false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return "", false
	}
	if output, ok := first["output"].(string); ok {
		return nonEmpty(output)
	}
	switch content := first["content"].(type) {
	case string:
		return nonEmpty(content)
	case map[string]any:
		// Gemini REST shape: content.parts[0].text
		if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
			if part, ok := parts[0].(map[string]any); ok {
				if text, ok := part["text"].(string); ok {
					return nonEmpty(text)
				}
			}
		}
	}
	return "", false
}

func fromString(result any) (string, bool) {
	s, ok := result.(string)
	if !ok {
		return "", false
	}
	return nonEmpty(s)
}

// {text: "..."}
func fromTextField(result any) (string, bool) {
	m, ok := result.(map[string]any)
	if !ok {
		return "", false
	}
	if text, ok := m["text"].(string); ok {
		return nonEmpty(text)
	}
	return "", false
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
