package parse

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
)

// ExtractStructuredBlocks collects every JSON-LD block on the page as a flat
// list of decoded values. Top-level arrays and @graph wrappers are flattened
// one level and malformed blocks are skipped.
func ExtractStructuredBlocks(doc *goquery.Document) []any {
	var blocks []any
	appendNode := func(node any) {
		if obj, ok := node.(map[string]any); ok {
			if graph, ok := obj["@graph"].([]any); ok {
				blocks = append(blocks, graph...)
				return
			}
		}
		blocks = append(blocks, node)
	}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return
		}
		if list, ok := decoded.([]any); ok {
			for _, item := range list {
				appendNode(item)
			}
			return
		}
		appendNode(decoded)
	})
	return blocks
}

// TextValue renders a decoded JSON value as text. Numbers keep their shortest
// representation so ids like 184126 do not grow exponents.
func TextValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// FirstText returns the first non-blank text value among the named keys of a
// JSON object.
func FirstText(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := TextValue(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

// FirstArray returns the first of the named keys whose value is a JSON array.
func FirstArray(obj map[string]any, keys ...string) []any {
	for _, key := range keys {
		if list, ok := obj[key].([]any); ok {
			return list
		}
	}
	return nil
}

// FirstNonBlank returns the first non-blank string after trimming.
func FirstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// TypeContains reports whether the @type of a JSON-LD node (string or array
// of strings) contains want, case-insensitively.
func TypeContains(node map[string]any, want string) bool {
	want = strings.ToLower(want)
	switch t := node["@type"].(type) {
	case string:
		return strings.Contains(strings.ToLower(t), want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.Contains(strings.ToLower(s), want) {
				return true
			}
		}
	}
	return false
}
