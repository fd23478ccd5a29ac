package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c sequences.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StripFence removes a surrounding markdown code fence such as ```json ... ```.
func StripFence(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

// UnmarshalFlex decodes model output into v with best effort:
// 1) strip a markdown fence, 2) decode directly, 3) if the payload is a
// JSON string holding JSON, decode the inner document.
func UnmarshalFlex(raw []byte, v any) error {
	body := StripFence(raw)
	err := json.Unmarshal(body, v)
	if err == nil {
		return nil
	}
	var inner string
	if json.Unmarshal(body, &inner) != nil {
		return err
	}
	return json.Unmarshal(StripFence([]byte(inner)), v)
}
