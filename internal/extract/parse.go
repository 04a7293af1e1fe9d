package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ParseFailure is the explicit result of a response that could not be read
// as JSON by any recovery stage. It is serialized into batch reports as-is.
type ParseFailure struct {
	Message    string `json:"error"`
	RawContent string `json:"raw_content"`
}

func (e *ParseFailure) Error() string {
	return "unparsable backend response: " + e.Message
}

// Fields returns the failure as an extracted-data map
func (e *ParseFailure) Fields() map[string]any {
	return map[string]any{"error": e.Message, "raw_content": e.RawContent}
}

// ParseResponse recovers a JSON object from a model completion. Fenced json
// blocks are tried first, then brace-delimited objects, then the whole body.
// Objects found within one stage are merged in order.
func ParseResponse(content string) (map[string]any, error) {
	var blocks []string
	for _, m := range fencedJSON.FindAllStringSubmatch(content, -1) {
		blocks = append(blocks, m[1])
	}
	if merged := mergeObjects(blocks); len(merged) > 0 {
		return merged, nil
	}

	if merged := mergeObjects(braceObjects(content)); len(merged) > 0 {
		return merged, nil
	}

	var whole map[string]any
	body := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(body), &whole); err != nil {
		return nil, &ParseFailure{Message: err.Error(), RawContent: content}
	}
	if whole == nil {
		return nil, &ParseFailure{Message: "response is not a JSON object", RawContent: content}
	}
	return whole, nil
}

func mergeObjects(blocks []string) map[string]any {
	merged := make(map[string]any)
	for _, b := range blocks {
		var obj map[string]any
		if err := json.Unmarshal([]byte(b), &obj); err != nil {
			continue
		}
		for k, v := range obj {
			merged[k] = v
		}
	}
	return merged
}

// braceObjects returns the balanced top-level {...} substrings of s.
// Braces inside JSON strings are ignored.
func braceObjects(s string) []string {
	var (
		out      []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					out = append(out, s[start:i+1])
				}
			}
		}
	}
	return out
}
