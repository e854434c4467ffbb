package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Job is one validated batch request. It is not modified during a run.
type Job struct {
	InputDir    string `json:"input_directory" validate:"required"`
	OutputDir   string `json:"output_directory" validate:"required"`
	APIKey      string `json:"-" validate:"required"`
	Language    string `json:"language"`
	Model       string `json:"model" validate:"required"`
	SmartFormat bool   `json:"smart_format"`
	Overwrite   bool   `json:"overwrite"`
}

// NewJob returns a job with the default model and smart formatting enabled.
func NewJob(inputDir, outputDir, apiKey, language string) Job {
	return Job{
		InputDir:    inputDir,
		OutputDir:   outputDir,
		APIKey:      apiKey,
		Language:    language,
		Model:       DefaultModel,
		SmartFormat: true,
	}
}

// Validate checks required fields.
func (j Job) Validate() error {
	if err := validate.Struct(j); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("invalid job: missing %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid job: %w", err)
	}
	return nil
}

// LanguageParam returns the language to send to the provider, or "" for auto-detection.
func (j Job) LanguageParam() string {
	lang := strings.TrimSpace(j.Language)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}
