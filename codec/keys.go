package codec

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// convertKeys rewrites every object key in a JSON document from snake_case
// to camelCase. Numbers are kept verbatim.
func convertKeys(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return json.Marshal(rewriteKeys(doc))
}

func rewriteKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[SnakeToCamel(k)] = rewriteKeys(item)
		}
		return out
	case []any:
		for i := range t {
			t[i] = rewriteKeys(t[i])
		}
		return t
	default:
		return v
	}
}

// SnakeToCamel converts "prompt_eval_count" to "promptEvalCount".
// Leading and trailing underscores are kept, runs of inner underscores act
// as one separator, and a key without inner underscores is returned as is.
func SnakeToCamel(key string) string {
	start := strings.IndexFunc(key, func(r rune) bool { return r != '_' })
	if start < 0 {
		return key
	}
	end := strings.LastIndexFunc(key, func(r rune) bool { return r != '_' }) + 1

	words := strings.FieldsFunc(key[start:end], func(r rune) bool { return r == '_' })
	if len(words) == 1 {
		return key
	}

	var b strings.Builder
	b.Grow(len(key))
	b.WriteString(key[:start])
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(capitalize(w))
	}
	b.WriteString(key[end:])
	return b.String()
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}
