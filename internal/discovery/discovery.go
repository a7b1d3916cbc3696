// Package discovery turns previously downloaded transcript files into pipeline
// records.
//
// The transcript downloader writes one JSON file per video:
//
//	{
//	  "metadata": {"video_url": ..., "channel_name": ..., "video_title": ...,
//	               "publish_date": ..., "duration": ..., "tags": [...]},
//	  "transcript": [{"text": ..., "at": ...}, ...]
//	}
//
// Scan walks an input directory for such files, joins the transcript segments
// into one text, and derives each record's identity key from the video URL.
// Files that do not parse are logged and skipped; one bad file never aborts a
// batch.
package discovery

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"scriptforge/internal/pipeline"
)

// videoIDPattern extracts the 11-character YouTube video ID from a watch URL.
var videoIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})(?:[&?].*)?$`)

// transcriptFile mirrors the downloader's on-disk layout.
type transcriptFile struct {
	Metadata   map[string]any `json:"metadata"`
	Transcript []segment      `json:"transcript"`
}

// segment is one timed transcript entry.
type segment struct {
	Text string `json:"text"`
	At   string `json:"at"`
}

// Scan walks dir for transcript JSON files and loads them into records in
// lexical path order. When recursive is false, only dir's top level is read.
// Unreadable or malformed files are skipped with a warning.
func Scan(dir string, recursive bool) ([]pipeline.Record, error) {
	var records []pipeline.Record

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		rec, loadErr := Load(path)
		if loadErr != nil {
			slog.Warn("skipping unreadable transcript file", "path", path, "err", loadErr)
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: walk %q: %w", dir, err)
	}
	return records, nil
}

// Load reads a single transcript file into a record.
func Load(path string) (pipeline.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Record{}, fmt.Errorf("discovery: read %q: %w", path, err)
	}

	var tf transcriptFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return pipeline.Record{}, fmt.Errorf("discovery: decode %q: %w", path, err)
	}
	if len(tf.Transcript) == 0 {
		return pipeline.Record{}, fmt.Errorf("discovery: %q has no transcript segments", path)
	}

	texts := make([]string, 0, len(tf.Transcript))
	for _, seg := range tf.Transcript {
		if seg.Text != "" {
			texts = append(texts, seg.Text)
		}
	}

	rec := pipeline.Record{
		ID:       identityKey(tf.Metadata, path),
		Title:    metaString(tf.Metadata, "video_title"),
		Channel:  metaString(tf.Metadata, "channel_name"),
		Duration: metaString(tf.Metadata, "duration"),
		Text:     strings.Join(texts, " "),
		Metadata: tf.Metadata,
	}
	return rec, nil
}

// identityKey derives a stable key for the record: the video ID from the
// source URL when present, otherwise the file's base name. Both are stable
// across runs for the same source file.
func identityKey(meta map[string]any, path string) string {
	if url := metaString(meta, "video_url"); url != "" {
		if m := videoIDPattern.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// metaString reads a string field from the loosely typed metadata map.
func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
