package main

import (
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nguyentantai21042004/batch-transcriber/internal/config"
)

type options struct {
	configPath string
	envFile    string
	input      string
	output     string
	language   string
	model      string
	noSmart    bool
	overwrite  bool
	pdfMinimal bool
	txtDir     string
	jsonDir    string
	pdfDir     string
	fontReg    string
	fontBold   string
	docx       bool
	workers    int
	watch      bool
	summarize  bool
	eventsJSON bool
	logLevel   string
	logFormat  string
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("transcriber", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML config file")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with DEEPGRAM_API_KEY / GEMINI_API_KEYS")
	fs.StringVarP(&opts.input, "input", "i", "", "directory with audio/video files")
	fs.StringVarP(&opts.output, "output", "o", "", "output directory")
	fs.StringVar(&opts.language, "language", "", `transcription language code, or "auto"`)
	fs.StringVar(&opts.model, "model", "", "Deepgram model")
	fs.BoolVar(&opts.noSmart, "no-smart-format", false, "disable Deepgram smart formatting")
	fs.BoolVar(&opts.overwrite, "overwrite", false, "re-transcribe files whose outputs already exist")
	fs.BoolVar(&opts.pdfMinimal, "pdf-minimal", false, "omit the PDF header block")
	fs.StringVar(&opts.txtDir, "txt-dir", "", "override the txt output directory")
	fs.StringVar(&opts.jsonDir, "json-dir", "", "override the json output directory")
	fs.StringVar(&opts.pdfDir, "pdf-dir", "", "override the pdf output directory")
	fs.StringVar(&opts.fontReg, "font-regular", "", "TTF font for PDF body text")
	fs.StringVar(&opts.fontBold, "font-bold", "", "TTF font for PDF titles")
	fs.BoolVar(&opts.docx, "docx", false, "also write a .docx transcript")
	fs.IntVar(&opts.workers, "workers", 0, "files processed concurrently")
	fs.BoolVar(&opts.watch, "watch", false, "keep running and transcribe new files as they appear (exits 130 on Ctrl+C)")
	fs.BoolVar(&opts.summarize, "summarize", false, "write Gemini summaries after each batch")
	fs.BoolVar(&opts.eventsJSON, "events-json", false, "print progress events as JSON lines on stdout")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&opts.logFormat, "log-format", "", "text or json")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return opts, fs, nil
}

// apply copies explicitly set flags over the config file values.
func (o *options) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}

	set("input", func() { cfg.Paths.Input = o.input })
	set("output", func() { cfg.Paths.Output = o.output })
	set("language", func() { cfg.Deepgram.Language = o.language })
	set("model", func() { cfg.Deepgram.Model = o.model })
	set("no-smart-format", func() {
		smart := !o.noSmart
		cfg.Deepgram.SmartFormat = &smart
	})
	set("pdf-minimal", func() { cfg.Render.PDFMinimal = o.pdfMinimal })
	set("txt-dir", func() { cfg.Paths.TxtDir = o.txtDir })
	set("json-dir", func() { cfg.Paths.JSONDir = o.jsonDir })
	set("pdf-dir", func() { cfg.Paths.PDFDir = o.pdfDir })
	set("font-regular", func() { cfg.Render.FontRegular = o.fontReg })
	set("font-bold", func() { cfg.Render.FontBold = o.fontBold })
	set("docx", func() { cfg.Render.Docx = o.docx })
	set("workers", func() { cfg.Performance.MaxConcurrent = o.workers })
	set("summarize", func() { cfg.Gemini.Enabled = o.summarize })
	set("log-level", func() { cfg.Logging.Level = o.logLevel })
	set("log-format", func() { cfg.Logging.Format = o.logFormat })
}

// geminiKeys reads a comma separated key list from GEMINI_API_KEYS,
// falling back to GEMINI_API_KEY.
func geminiKeys() []string {
	raw := os.Getenv("GEMINI_API_KEYS")
	if raw == "" {
		raw = os.Getenv("GEMINI_API_KEY")
	}

	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
