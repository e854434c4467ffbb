package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

const unicodeFamily = "U"

var fontCandidates = [][2]string{
	{"DejaVuSans.ttf", "DejaVuSans-Bold.ttf"},
	{"NotoSans-Regular.ttf", "NotoSans-Bold.ttf"},
	{"Inter-Regular.ttf", "Inter-Bold.ttf"},
	{"segoeui.ttf", "segoeuib.ttf"},
	{"arial.ttf", "arialbd.ttf"},
	{"Arial.ttf", "Arial Bold.ttf"},
	{"calibri.ttf", "calibrib.ttf"},
}

// fontSet describes the fonts a document was set up with.
type fontSet struct {
	family    string
	boldStyle string
	unicode   bool
}

// text converts s into something the loaded fonts can draw.
func (f fontSet) text(s string) string {
	if f.unicode {
		return s
	}
	return toCoreFont(s)
}

func newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetCreator("batch-transcriber", true)
	return pdf
}

// writePDF renders text into a paginated A4 document at path.
func (r *implRenderer) writePDF(ctx context.Context, path, title, text string, result *domain.TranscriptResult) error {
	pdf, fonts := r.setupFonts(ctx)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	if !r.opts.PDFMinimal {
		pdf.SetFont(fonts.family, fonts.boldStyle, 16)
		pdf.CellFormat(0, 10, fonts.text(title), "", 1, "L", false, 0, "")

		pdf.SetFont(fonts.family, "", 10)
		pdf.CellFormat(0, 8, fonts.text("Generated: "+r.now().Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")
		pdf.MultiCell(0, 6, fonts.text("Info: "+infoLine(result)), "", "L", false)
		pdf.Ln(3)
	}

	pdf.SetFont(fonts.family, "", 12)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(0, 6, fonts.text(line), "", "L", false)
	}

	if pdf.Err() {
		return fmt.Errorf("layout pdf: %w", pdf.Error())
	}
	return pdf.OutputFileAndClose(path)
}

// setupFonts tries a Unicode TTF first and falls back to the core
// Helvetica font on a fresh document when the TTF cannot be loaded.
func (r *implRenderer) setupFonts(ctx context.Context) (*fpdf.Fpdf, fontSet) {
	regular, bold := r.findFonts()
	if regular != "" {
		pdf := newDocument()
		fonts, err := addUnicodeFonts(pdf, regular, bold)
		if err == nil {
			return pdf, fonts
		}
		r.logger.Warn(ctx, "  ! Could not load font %s (%v), using core font with character substitution", regular, err)
	}
	return newDocument(), fontSet{family: "Helvetica", boldStyle: "B"}
}

func addUnicodeFonts(pdf *fpdf.Fpdf, regular, bold string) (fonts fontSet, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse font: %v", rec)
		}
	}()

	pdf.AddUTF8Font(unicodeFamily, "", regular)
	if pdf.Err() {
		return fontSet{}, pdf.Error()
	}

	fonts = fontSet{family: unicodeFamily, unicode: true}
	if bold != "" {
		pdf.AddUTF8Font(unicodeFamily, "B", bold)
		if pdf.Err() {
			// bold is optional; headers use the regular face
			pdf.ClearError()
		} else {
			fonts.boldStyle = "B"
		}
	}
	return fonts, nil
}

// findFonts returns the configured font paths, or the first known
// regular/bold pair found in the font directories.
func (r *implRenderer) findFonts() (regular, bold string) {
	if r.opts.FontRegular != "" {
		return r.opts.FontRegular, r.opts.FontBold
	}
	for _, dir := range r.opts.FontDirs {
		for _, pair := range fontCandidates {
			reg := filepath.Join(dir, pair[0])
			if !fileExists(reg) {
				continue
			}
			b := filepath.Join(dir, pair[1])
			if r.opts.FontBold != "" {
				b = r.opts.FontBold
			}
			if !fileExists(b) {
				b = ""
			}
			return reg, b
		}
	}
	return "", ""
}

func infoLine(result *domain.TranscriptResult) string {
	lang := result.Language
	if lang == "" {
		lang = "auto"
	}
	conf := "n/a"
	if result.Confidence != nil {
		conf = fmt.Sprintf("%.3f", *result.Confidence)
	}
	return fmt.Sprintf("Model=%s | Language=%s | Confidence=%s", result.Model, lang, conf)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
