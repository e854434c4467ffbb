package renderer

import (
	"time"

	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
)

// DefaultFontDirs are searched for a Unicode TTF when no font is configured.
var DefaultFontDirs = []string{
	"fonts",
	"/usr/share/fonts/truetype/dejavu",
	"/usr/share/fonts/truetype/noto",
	"/usr/share/fonts/TTF",
	"/Library/Fonts",
	"C:/Windows/Fonts",
}

// Options configures rendering. Empty directory overrides mean
// <outputDir>/txt, <outputDir>/json and <outputDir>/pdf.
type Options struct {
	TxtDir      string
	JSONDir     string
	PDFDir      string
	PDFMinimal  bool
	FontRegular string
	FontBold    string
	FontDirs    []string
	Docx        bool
}

type implRenderer struct {
	opts   Options
	logger logger.Logger
	now    func() time.Time
}

// New creates a Renderer.
func New(opts Options, log logger.Logger) Renderer {
	if opts.FontDirs == nil {
		opts.FontDirs = DefaultFontDirs
	}
	return &implRenderer{
		opts:   opts,
		logger: log,
		now:    time.Now,
	}
}
