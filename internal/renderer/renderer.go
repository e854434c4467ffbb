package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

const emptyTranscriptNotice = "[Empty transcript]\n(See the .json file for the full provider response.)"

// Render writes every artifact for result. With overwrite false and all
// artifacts present it returns the existing paths without writing.
func (r *implRenderer) Render(ctx context.Context, result *domain.TranscriptResult, outputDir, baseName string, overwrite bool) (domain.OutputArtifacts, error) {
	arts, complete := r.Existing(outputDir, baseName)
	if complete && !overwrite {
		r.logger.Debug(ctx, "Artifacts for %s already exist, skipping render", baseName)
		return arts, nil
	}

	for _, path := range r.artifactPaths(arts) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return domain.OutputArtifacts{}, &domain.RenderError{Path: filepath.Dir(path), Err: err}
		}
	}

	text := result.Text
	if text == "" {
		text = emptyTranscriptNotice
	}

	if err := writeAtomic(arts.TxtPath, func(tmp string) error {
		return os.WriteFile(tmp, []byte(text), 0644)
	}); err != nil {
		return domain.OutputArtifacts{}, &domain.RenderError{Path: arts.TxtPath, Err: err}
	}

	doc, err := encodeJSON(result)
	if err != nil {
		return domain.OutputArtifacts{}, &domain.RenderError{Path: arts.JSONPath, Err: err}
	}
	if err := writeAtomic(arts.JSONPath, func(tmp string) error {
		return os.WriteFile(tmp, doc, 0644)
	}); err != nil {
		return domain.OutputArtifacts{}, &domain.RenderError{Path: arts.JSONPath, Err: err}
	}

	title := "Transcript - " + result.Source.Stem()
	if result.Source.Path == "" {
		title = "Transcript - " + baseName
	}
	if err := writeAtomic(arts.PDFPath, func(tmp string) error {
		return r.writePDF(ctx, tmp, title, text, result)
	}); err != nil {
		return domain.OutputArtifacts{}, &domain.RenderError{Path: arts.PDFPath, Err: err}
	}

	if r.opts.Docx {
		if err := writeAtomic(arts.DocxPath, func(tmp string) error {
			return textToDocx(title, text, tmp)
		}); err != nil {
			return domain.OutputArtifacts{}, &domain.RenderError{Path: arts.DocxPath, Err: err}
		}
	}

	return arts, nil
}

// Existing reports the artifact paths for baseName and whether all exist.
func (r *implRenderer) Existing(outputDir, baseName string) (domain.OutputArtifacts, bool) {
	arts := domain.OutputArtifacts{
		TxtPath:  filepath.Join(r.dir(r.opts.TxtDir, outputDir, "txt"), baseName+".txt"),
		JSONPath: filepath.Join(r.dir(r.opts.JSONDir, outputDir, "json"), baseName+".json"),
		PDFPath:  filepath.Join(r.dir(r.opts.PDFDir, outputDir, "pdf"), baseName+".pdf"),
	}
	if r.opts.Docx {
		arts.DocxPath = filepath.Join(outputDir, "docx", baseName+".docx")
	}

	for _, path := range r.artifactPaths(arts) {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return arts, false
		}
	}
	return arts, true
}

// Owner reads the source file name from baseName's JSON artifact.
func (r *implRenderer) Owner(outputDir, baseName string) (string, bool) {
	path := filepath.Join(r.dir(r.opts.JSONDir, outputDir, "json"), baseName+".json")
	res, err := ReadJSON(path)
	if err != nil {
		return "", false
	}
	if res.Source.Path == "" {
		return "", true
	}
	return res.Source.Name(), true
}

func (r *implRenderer) dir(override, outputDir, name string) string {
	if override != "" {
		return override
	}
	return filepath.Join(outputDir, name)
}

func (r *implRenderer) artifactPaths(arts domain.OutputArtifacts) []string {
	paths := []string{arts.TxtPath, arts.JSONPath, arts.PDFPath}
	if arts.DocxPath != "" {
		paths = append(paths, arts.DocxPath)
	}
	return paths
}

// jsonDocument is the on-disk JSON schema. Field order is the key order.
type jsonDocument struct {
	Text       string           `json:"text"`
	Segments   []domain.Segment `json:"segments"`
	Language   string           `json:"language"`
	Model      string           `json:"model"`
	Confidence *float64         `json:"confidence,omitempty"`
	Duration   float64          `json:"duration,omitempty"`
	RequestID  string           `json:"request_id,omitempty"`
	Source     string           `json:"source,omitempty"`
	Raw        json.RawMessage  `json:"raw,omitempty"`
}

func encodeJSON(result *domain.TranscriptResult) ([]byte, error) {
	doc := jsonDocument{
		Text:       result.Text,
		Segments:   result.Segments,
		Language:   result.Language,
		Model:      result.Model,
		Confidence: result.Confidence,
		Duration:   result.Duration,
		RequestID:  result.RequestID,
		Source:     result.Source.Name(),
	}
	if doc.Segments == nil {
		doc.Segments = []domain.Segment{}
	}
	if result.Source.Path == "" {
		doc.Source = ""
	}
	if len(result.Raw) > 0 && json.Valid(result.Raw) {
		doc.Raw = json.RawMessage(result.Raw)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadJSON parses a JSON artifact back into a TranscriptResult.
func ReadJSON(path string) (*domain.TranscriptResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	var source domain.InputFile
	if doc.Source != "" {
		source = domain.InputFile{Path: doc.Source, Extension: strings.ToLower(filepath.Ext(doc.Source))}
	}

	return &domain.TranscriptResult{
		Source:     source,
		Text:       doc.Text,
		Segments:   doc.Segments,
		Language:   doc.Language,
		Model:      doc.Model,
		Confidence: doc.Confidence,
		Duration:   doc.Duration,
		RequestID:  doc.RequestID,
		Raw:        []byte(doc.Raw),
	}, nil
}

// writeAtomic lets write fill a temp file next to path, then renames it
// into place so a crashed run never leaves a half-written artifact.
func writeAtomic(path string, write func(tmp string) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*"+filepath.Ext(path))
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
