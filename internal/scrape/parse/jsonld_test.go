package parse

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// TestExtractStructuredBlocksFlattening verifies structured block flattening behavior.
func TestExtractStructuredBlocksFlattening(t *testing.T) {
	html := `
<script type="application/ld+json">{"@type": "Event", "name": "Solo"}</script>
<script type="application/ld+json">[{"@type": "Event", "name": "InArray"}]</script>
<script type="application/ld+json">{"@context": "https://schema.org", "@graph": [
  {"@type": "Event", "name": "InGraph"},
  {"@type": "Place", "name": "Hall"}
]}</script>
<script type="application/ld+json">{broken</script>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	blocks := ExtractStructuredBlocks(doc)
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d: %+v", len(blocks), blocks)
	}
	want := []string{"Solo", "InArray", "InGraph", "Hall"}
	for i, name := range want {
		node, ok := blocks[i].(map[string]any)
		if !ok || FirstText(node, "name") != name {
			t.Fatalf("block %d: expected %q, got %+v", i, name, blocks[i])
		}
	}
}
