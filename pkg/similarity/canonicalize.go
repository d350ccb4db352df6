package similarity

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ErrCanonicalizationFailed means the payload could not be reduced to a
// canonical form (malformed JSON, most commonly). Callers should treat this
// as "disable similarity mode for this request" rather than a hard error.
var ErrCanonicalizationFailed = errors.New("similarity: canonicalization failed")

// DefaultIgnoredJSONFields lists the JSON object keys skipped during
// canonicalization because they vary between otherwise-identical requests.
func DefaultIgnoredJSONFields() map[string]struct{} {
	return map[string]struct{}{
		"id":         {},
		"timestamp":  {},
		"created_at": {},
		"updated_at": {},
	}
}

// Canonicalize reduces body to a stable string form for fingerprinting.
// JSON content types are recursively re-emitted with object keys in
// ascending order, skipping any key present in ignoredFields. Any other
// content is lowercased and has runs of whitespace collapsed to one space.
func Canonicalize(contentType string, body []byte, ignoredFields map[string]struct{}) (string, error) {
	if isJSONContentType(contentType) {
		var value interface{}
		if err := json.Unmarshal(body, &value); err != nil {
			return "", ErrCanonicalizationFailed
		}
		var sb strings.Builder
		if err := canonicalizeJSON(&sb, value, ignoredFields); err != nil {
			return "", ErrCanonicalizationFailed
		}
		return sb.String(), nil
	}
	return canonicalizeText(string(body)), nil
}

func isJSONContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.Contains(ct, "json")
}

func canonicalizeText(s string) string {
	lowered := strings.ToLower(s)
	var sb strings.Builder
	lastWasSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				sb.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		lastWasSpace = false
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}

func canonicalizeJSON(sb *strings.Builder, value interface{}, ignoredFields map[string]struct{}) error {
	switch v := value.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case float64:
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		sb.WriteString(v)
	case []interface{}:
		sb.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := canonicalizeJSON(sb, elem, ignoredFields); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			if _, skip := ignoredFields[k]; skip {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(k)
			sb.WriteByte(':')
			if err := canonicalizeJSON(sb, v[k], ignoredFields); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		return ErrCanonicalizationFailed
	}
	return nil
}
