package segment

import (
	"strings"
	"testing"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Hello   world \n", "Hello world"},
		{"Hello\tworld", "Hello world"},
		{"Hello world", "Hello world"},
		{"   ", ""},
		{"多  语言\n切分", "多 语言 切分"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHashStableAcrossWhitespace(t *testing.T) {
	a := Hash("Hello   world")
	b := Hash("  Hello world\n")
	if a != b {
		t.Errorf("whitespace-equivalent texts must share a hash: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16 hex chars", len(a))
	}
	if a == Hash("Hello worlds") {
		t.Error("distinct texts must not collide on trivial input")
	}
}

func TestExtractBlocks(t *testing.T) {
	src := `<html><body>
		<h1>Page Title</h1>
		<p>First paragraph.</p>
		<ul><li>Item one</li><li>Item two</li></ul>
		<blockquote>Quoted text here</blockquote>
		<figure><img src="x.png" alt="A chart of revenue"><figcaption>Revenue chart</figcaption></figure>
	</body></html>`
	segs := Extract(src)
	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
	}
	want := []string{"Page Title", "First paragraph.", "Item one", "Item two", "Quoted text here", "A chart of revenue", "Revenue chart"}
	for _, w := range want {
		if !contains(texts, w) {
			t.Errorf("missing segment %q in %v", w, texts)
		}
	}
}

func TestExtractDocumentOrder(t *testing.T) {
	src := `<body><p>alpha one</p><p>beta two</p><p>gamma three</p></body>`
	segs := Extract(src)
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	if segs[0].Text != "alpha one" || segs[1].Text != "beta two" || segs[2].Text != "gamma three" {
		t.Errorf("segments out of document order: %v", segs)
	}
}

func TestExtractSkipsScriptStyleComments(t *testing.T) {
	src := `<body>
		<script>var ignored = "Script body text";</script>
		<style>.c { color: red }</style>
		<!-- A comment that looks like prose -->
		<p>Visible paragraph</p>
	</body>`
	segs := Extract(src)
	if len(segs) != 1 || segs[0].Text != "Visible paragraph" {
		t.Errorf("expected only visible paragraph, got %v", segs)
	}
}

func TestExtractAttributes(t *testing.T) {
	src := `<body><input placeholder="Your email address" title="Email field"><p>Body text</p></body>`
	segs := Extract(src)
	byAttr := make(map[string]string)
	for _, s := range segs {
		if s.Attr != "" {
			byAttr[s.Attr] = s.Text
		}
	}
	if byAttr["placeholder"] != "Your email address" {
		t.Errorf("placeholder not extracted: %v", byAttr)
	}
	if byAttr["title"] != "Email field" {
		t.Errorf("title not extracted: %v", byAttr)
	}
}

func TestExtractDedupKeepsFirst(t *testing.T) {
	src := `<body><p>Repeated text</p><p>Repeated   text</p><p>Unique text</p></body>`
	segs := Extract(src)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2 after dedup: %v", len(segs), segs)
	}
	if segs[0].Text != "Repeated text" {
		t.Errorf("first occurrence must win, got %q", segs[0].Text)
	}
}

func TestExtractMinLength(t *testing.T) {
	src := `<body><p>ok</p><p>ab</p><p>abc</p></body>`
	segs := Extract(src)
	if len(segs) != 1 || segs[0].Text != "abc" {
		t.Errorf("segments under 3 code points must be dropped, got %v", segs)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	if segs := Extract(""); segs != nil {
		t.Errorf("empty input must yield no segments, got %v", segs)
	}
	if segs := Extract("   \n\t "); segs != nil {
		t.Errorf("blank input must yield no segments, got %v", segs)
	}
}

func TestExtractNestedBlocks(t *testing.T) {
	src := `<body><blockquote>intro <p>Hello world</p></blockquote></body>`
	segs := Extract(src)
	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
	}
	// 外层块取其递归文本，内层块仍各自成段
	if !contains(texts, "intro Hello world") {
		t.Errorf("outer block must carry its recursive text content: %v", texts)
	}
	if !contains(texts, "Hello world") {
		t.Errorf("nested block must still yield its own segment: %v", texts)
	}
	if texts[0] != "intro Hello world" {
		t.Errorf("outer block must come first in document order: %v", texts)
	}
}

func TestExtractNestedBlockDedup(t *testing.T) {
	// 外层没有自有文本时，其递归文本与内层段同 hash，只保留首次出现
	src := `<body><li><p>Only inner text</p></li></body>`
	segs := Extract(src)
	if len(segs) != 1 || segs[0].Text != "Only inner text" {
		t.Errorf("identical recursive text must dedup to one segment, got %v", segs)
	}
}

func TestExtractLocator(t *testing.T) {
	src := `<html><body><ul><li>first entry</li><li>second entry</li></ul></body></html>`
	segs := Extract(src)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if !strings.Contains(segs[1].Locator, "li:nth-of-type(2)") {
		t.Errorf("second li locator = %q, want nth-of-type(2)", segs[1].Locator)
	}
}

func TestFallbackExtraction(t *testing.T) {
	src := `<p>Fallback paragraph</p><script>skip me entirely</script><p>Fallback paragraph</p>`
	segs := extractFallback(src)
	if len(segs) != 1 || segs[0].Text != "Fallback paragraph" {
		t.Errorf("fallback must dedup and skip scripts, got %v", segs)
	}
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
