package advisor

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when no balanced {...} block parses.
var ErrNoJSONObject = errors.New("advisor: no JSON object in response")

// ExtractFirstJSON finds the first balanced {...} block in text by counting
// brace depth (braces inside string literals are ignored) and decodes it.
// Prose before and after the block is tolerated.
func ExtractFirstJSON(text string) (interface{}, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, ErrNoJSONObject
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var v interface{}
				if err := json.Unmarshal([]byte(text[start:i+1]), &v); err != nil {
					return nil, ErrNoJSONObject
				}
				return v, nil
			}
		}
	}
	return nil, ErrNoJSONObject
}
