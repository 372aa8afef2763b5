/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// The file turns backend output into the caller-facing response body.
package mission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const generatedTextKey = "generated_text"

// GeneratedText is the fallback body when the model output is not JSON.
type GeneratedText struct {
	GeneratedText string `json:"generated_text"`
}

// Normalize returns the generated text itself as the body when it is valid
// UTF-8 JSON, and wraps it in GeneratedText otherwise. Exactly one shape is
// returned.
func Normalize(text string) any {
	trimmed := strings.TrimSpace(text)
	// json.Valid accepts invalid UTF-8 inside strings; encoding GeneratedText replaces it
	if trimmed != "" && utf8.ValidString(trimmed) && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return GeneratedText{GeneratedText: text}
}

// ExtractRemoteText pulls the generated text out of a hosted-inference
// envelope. Recognized shapes are a list whose first element carries
// generated_text, and a single object carrying generated_text. With legacy
// set, any other shape or a non-string generated_text is stringified;
// otherwise it is reported as an unexpected envelope.
func ExtractRemoteText(body []byte, legacy bool) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return "", NewEnvelopeError(fmt.Sprintf("response is not JSON: %v", err), err)
	}

	switch v := payload.(type) {
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				if text, ok := first[generatedTextKey]; ok {
					return generatedText(text, legacy)
				}
			}
			if legacy {
				return stringify(v[0]), nil
			}
			return "", NewEnvelopeError(fmt.Sprintf("first list element has no %s field", generatedTextKey), nil)
		}
	case map[string]any:
		if text, ok := v[generatedTextKey]; ok {
			return generatedText(text, legacy)
		}
	}

	if legacy {
		return stringify(payload), nil
	}
	return "", NewEnvelopeError(fmt.Sprintf("no %s field in %s", generatedTextKey, describe(payload)), nil)
}

func generatedText(v any, legacy bool) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	if legacy {
		return stringify(v), nil
	}
	return "", NewEnvelopeError(fmt.Sprintf("%s is not a string but %s", generatedTextKey, describe(v)), nil)
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func describe(v any) string {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return "empty list"
		}
		return "list"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
