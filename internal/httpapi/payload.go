package httpapi

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// maxBodyBytes bounds request payload size.
const maxBodyBytes = 1 << 20

// payloadString extracts the first non-empty value among keys from the raw
// JSON body. Scalars are coerced to strings; some clients send numeric ids.
func payloadString(body []byte, keys ...string) string {
	for _, key := range keys {
		v := gjson.GetBytes(body, key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

// parseObject validates that body is a JSON object and unmarshals it.
func parseObject(body []byte) (map[string]any, bool) {
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false
	}
	return payload, true
}
