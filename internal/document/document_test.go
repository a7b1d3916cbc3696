package document_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"scriptforge/internal/document"
)

// sample builds a JSON reply with every section comfortably over its minimum.
func sample() string {
	doc := document.Document{
		Title:   "A Complete Introduction to Table Driven Testing",
		Summary: strings.Repeat("The summary covers every topic mentioned. ", 4),
		Content: strings.Repeat("Detailed content with examples and explanations. ", 15),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func TestParse_PlainJSON(t *testing.T) {
	t.Parallel()
	doc, err := document.Parse(sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title == "" || doc.Summary == "" || doc.Content == "" {
		t.Error("parsed document has empty sections")
	}
}

func TestParse_StripsSurroundingProse(t *testing.T) {
	t.Parallel()
	replies := []string{
		"Sure, here is the document you asked for:\n" + sample(),
		"```json\n" + sample() + "\n```",
		sample() + "\n\nLet me know if you need changes!",
	}
	for i, reply := range replies {
		if _, err := document.Parse(reply); err != nil {
			t.Errorf("reply %d: unexpected error: %v", i, err)
		}
	}
}

func TestParse_NoJSONObject(t *testing.T) {
	t.Parallel()
	for _, reply := range []string{"", "just prose, no braces", "}{"} {
		if _, err := document.Parse(reply); !errors.Is(err, document.ErrNoJSON) {
			t.Errorf("reply %q: got %v, want ErrNoJSON", reply, err)
		}
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	t.Parallel()
	if _, err := document.Parse(`{"title": "unterminated`); err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestParse_MissingFields(t *testing.T) {
	t.Parallel()
	if _, err := document.Parse(`{"title": "only a title here, nothing else"}`); err == nil {
		t.Fatal("expected error for missing fields, got nil")
	}
}

func TestParse_SectionsBelowMinimumLength(t *testing.T) {
	t.Parallel()

	long := func(n int) string { return strings.Repeat("x", n) }
	cases := []struct {
		name string
		doc  document.Document
	}{
		{"short title", document.Document{
			Title:   long(document.MinTitleLength),
			Summary: long(document.MinSummaryLength + 1),
			Content: long(document.MinContentLength + 1),
		}},
		{"short summary", document.Document{
			Title:   long(document.MinTitleLength + 1),
			Summary: long(document.MinSummaryLength),
			Content: long(document.MinContentLength + 1),
		}},
		{"short content", document.Document{
			Title:   long(document.MinTitleLength + 1),
			Summary: long(document.MinSummaryLength + 1),
			Content: long(document.MinContentLength),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.doc)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := document.Parse(string(data)); !errors.Is(err, document.ErrTooShort) {
				t.Errorf("got %v, want ErrTooShort", err)
			}
		})
	}
}

func TestParse_LengthsCountCharactersNotBytes(t *testing.T) {
	t.Parallel()

	// Each 語 is three bytes, so byte counts clear every threshold while
	// character counts do not.
	short := document.Document{
		Title:   strings.Repeat("語", document.MinTitleLength),
		Summary: strings.Repeat("語", document.MinSummaryLength+1),
		Content: strings.Repeat("語", document.MinContentLength+1),
	}
	data, err := json.Marshal(short)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := document.Parse(string(data)); !errors.Is(err, document.ErrTooShort) {
		t.Errorf("got %v, want ErrTooShort for an under-length multi-byte title", err)
	}

	ok := document.Document{
		Title:   strings.Repeat("語", document.MinTitleLength+1),
		Summary: strings.Repeat("語", document.MinSummaryLength+1),
		Content: strings.Repeat("語", document.MinContentLength+1),
	}
	data, err = json.Marshal(ok)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := document.Parse(string(data)); err != nil {
		t.Errorf("unexpected error for a multi-byte document over every minimum: %v", err)
	}
}

func TestParse_ExactlyOverMinimumPasses(t *testing.T) {
	t.Parallel()
	doc := document.Document{
		Title:   strings.Repeat("x", document.MinTitleLength+1),
		Summary: strings.Repeat("x", document.MinSummaryLength+1),
		Content: strings.Repeat("x", document.MinContentLength+1),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := document.Parse(string(data)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
