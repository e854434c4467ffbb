package domain

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultModel is the provider model used when a job does not name one.
const DefaultModel = "nova-3"

var (
	videoExts = []string{".mp4", ".mov", ".mkv", ".avi", ".mpg", ".mpeg", ".m4v", ".webm"}
	audioExts = []string{".wav", ".mp3", ".m4a", ".aac", ".flac", ".ogg", ".opus", ".wma"}
)

// IsSupported reports whether path has an allowlisted audio or video extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range videoExts {
		if ext == e {
			return true
		}
	}
	for _, e := range audioExts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsVideo reports whether path has an allowlisted video extension.
func IsVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range videoExts {
		if ext == e {
			return true
		}
	}
	return false
}

// SupportedExtensions returns the allowlist, video formats first.
func SupportedExtensions() []string {
	out := make([]string, 0, len(videoExts)+len(audioExts))
	out = append(out, videoExts...)
	return append(out, audioExts...)
}

// InputFile is one discovered media file.
type InputFile struct {
	Path      string `json:"path"`
	Extension string `json:"extension"`
}

// Name returns the file's base name.
func (f InputFile) Name() string {
	return filepath.Base(f.Path)
}

// Stem returns the file's base name without extension.
func (f InputFile) Stem() string {
	base := filepath.Base(f.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ExtractedAudio is a temporary normalized audio file produced for one input.
type ExtractedAudio struct {
	Source InputFile
	Path   string
}

// Cleanup removes the temporary audio file. Removing a missing file is not an error.
func (a *ExtractedAudio) Cleanup() error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Segment is a timestamped slice of transcript text.
type Segment struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// TranscriptResult is the provider-independent transcript of one input.
type TranscriptResult struct {
	Source     InputFile
	Text       string
	Segments   []Segment
	Language   string
	Model      string
	Confidence *float64
	Duration   float64
	RequestID  string
	Raw        []byte
}

// OutputArtifacts lists the files rendered for one input.
type OutputArtifacts struct {
	TxtPath  string `json:"txt_path"`
	JSONPath string `json:"json_path"`
	PDFPath  string `json:"pdf_path"`
	DocxPath string `json:"docx_path,omitempty"`
}
