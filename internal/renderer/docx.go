package renderer

import (
	"strings"

	"github.com/gomutex/godocx"
)

const (
	docxFont     = "Times New Roman"
	docxFontSize = 12
)

// textToDocx writes title and text as a Word document, one paragraph per
// non-empty line.
func textToDocx(title, text, outputPath string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	doc.AddParagraph("").AddText(title).Font(docxFont).Size(16).Color("000000").Bold(true)
	doc.AddParagraph("")

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		doc.AddParagraph("").AddText(trimmed).Font(docxFont).Size(docxFontSize).Color("000000")
	}

	return doc.SaveTo(outputPath)
}
