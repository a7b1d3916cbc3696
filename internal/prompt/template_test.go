package prompt_test

import (
	"strings"
	"testing"

	"scriptforge/internal/prompt"
)

func TestTemplate_Render(t *testing.T) {
	t.Parallel()
	tpl := prompt.Template{
		Name: "test",
		User: "Title: {{.Title}} ({{.Duration}})\nMeta: {{.Metadata}}\n{{.Transcript}}",
	}

	got, err := tpl.Render(prompt.Input{
		Title:      "Intro to Testing",
		Duration:   "12:34",
		Metadata:   `{"channel_name":"Chan"}`,
		Transcript: "hello world",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Title: Intro to Testing (12:34)\nMeta: {\"channel_name\":\"Chan\"}\nhello world"
	if got != want {
		t.Errorf("rendered prompt:\ngot  %q\nwant %q", got, want)
	}
}

func TestTemplate_RenderBadSyntax(t *testing.T) {
	t.Parallel()
	tpl := prompt.Template{Name: "broken", User: "{{.Transcript"}
	if _, err := tpl.Render(prompt.Input{}); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestTemplate_Validate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		tpl     prompt.Template
		wantErr bool
	}{
		{"valid", prompt.Template{Name: "v", User: "{{.Transcript}}"}, false},
		{"empty user", prompt.Template{Name: "e", User: "  \n"}, true},
		{"bad syntax", prompt.Template{Name: "b", User: "{{.Oops"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tpl.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefault_IsUsable(t *testing.T) {
	t.Parallel()
	tpl := prompt.Default()
	if tpl.Name != "default" {
		t.Errorf("name: got %q, want %q", tpl.Name, "default")
	}
	if err := tpl.Validate(); err != nil {
		t.Fatalf("default template does not validate: %v", err)
	}

	got, err := tpl.Render(prompt.Input{
		Metadata:   `{"video_title":"X"}`,
		Transcript: "the transcript body",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "the transcript body") {
		t.Error("rendered default prompt does not include the transcript")
	}
	if !strings.Contains(got, `{"video_title":"X"}`) {
		t.Error("rendered default prompt does not include the metadata")
	}
}
