package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"scriptforge/internal/discovery"
)

const transcriptJSON = `{
  "metadata": {
    "video_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
    "channel_name": "Tech Channel",
    "video_title": "Intro to Pipelines",
    "publish_date": "2024-03-01",
    "duration": "10:32",
    "tags": ["go", "pipelines"]
  },
  "transcript": [
    {"text": "hello", "at": "0:00"},
    {"text": "and welcome", "at": "0:03"},
    {"text": "", "at": "0:05"},
    {"text": "to the show", "at": "0:06"}
  ]
}`

func writeTranscript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %q: %v", path, err)
	}
	return path
}

func TestLoad_JoinsSegmentsAndExtractsMetadata(t *testing.T) {
	t.Parallel()
	path := writeTranscript(t, t.TempDir(), "video.json", transcriptJSON)

	rec, err := discovery.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "dQw4w9WgXcQ" {
		t.Errorf("identity key: got %q, want the video ID", rec.ID)
	}
	if rec.Title != "Intro to Pipelines" {
		t.Errorf("title: got %q", rec.Title)
	}
	if rec.Channel != "Tech Channel" {
		t.Errorf("channel: got %q", rec.Channel)
	}
	if rec.Duration != "10:32" {
		t.Errorf("duration: got %q", rec.Duration)
	}
	// Empty segments are dropped; the rest joined with single spaces.
	if rec.Text != "hello and welcome to the show" {
		t.Errorf("text: got %q", rec.Text)
	}
	if rec.Metadata["publish_date"] != "2024-03-01" {
		t.Error("raw metadata should be carried through")
	}
}

func TestLoad_FallsBackToFilenameWithoutURL(t *testing.T) {
	t.Parallel()
	content := `{"metadata": {"video_title": "No URL"}, "transcript": [{"text": "hi", "at": "0:00"}]}`
	path := writeTranscript(t, t.TempDir(), "my-talk.json", content)

	rec, err := discovery.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "my-talk" {
		t.Errorf("identity key: got %q, want the file base name", rec.ID)
	}
}

func TestLoad_ShortURLForm(t *testing.T) {
	t.Parallel()
	content := `{"metadata": {"video_url": "https://youtu.be/abcDEF12345"}, "transcript": [{"text": "hi", "at": "0:00"}]}`
	path := writeTranscript(t, t.TempDir(), "x.json", content)

	rec, err := discovery.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "abcDEF12345" {
		t.Errorf("identity key: got %q, want %q", rec.ID, "abcDEF12345")
	}
}

func TestLoad_RejectsEmptyTranscript(t *testing.T) {
	t.Parallel()
	path := writeTranscript(t, t.TempDir(), "empty.json", `{"metadata": {}, "transcript": []}`)
	if _, err := discovery.Load(path); err == nil {
		t.Fatal("expected error for empty transcript, got nil")
	}
}

func TestScan_TopLevelOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTranscript(t, dir, "a.json", transcriptJSON)
	writeTranscript(t, dir, "notes.txt", "not a transcript")

	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTranscript(t, sub, "b.json", transcriptJSON)

	records, err := discovery.Scan(dir, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("non-recursive scan: got %d records, want 1", len(records))
	}
}

func TestScan_Recursive(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTranscript(t, dir, "a.json", transcriptJSON)

	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Different URL so both records survive downstream dedup.
	writeTranscript(t, sub, "b.json", `{"metadata": {"video_url": "https://youtu.be/otherVideo1"}, "transcript": [{"text": "hi", "at": "0:00"}]}`)

	records, err := discovery.Scan(dir, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("recursive scan: got %d records, want 2", len(records))
	}
}

func TestScan_SkipsMalformedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTranscript(t, dir, "good.json", transcriptJSON)
	writeTranscript(t, dir, "bad.json", "{truncated")

	records, err := discovery.Scan(dir, false)
	if err != nil {
		t.Fatalf("one bad file must not abort the scan: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestScan_MissingDirectory(t *testing.T) {
	t.Parallel()
	if _, err := discovery.Scan(filepath.Join(t.TempDir(), "absent"), false); err == nil {
		t.Fatal("expected error for missing directory, got nil")
	}
}
