package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// Transcribe uploads the audio file, retrying rate-limit and network failures.
func (c *implClient) Transcribe(ctx context.Context, req Request) (*domain.TranscriptResult, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, &domain.TranscriptionError{Kind: domain.KindProvider, Message: "model is required"}
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, &domain.TranscriptionError{Kind: domain.KindAuth, Message: "api key is required"}
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, &domain.TranscriptionError{Kind: domain.KindProvider, Message: "audio file is not readable", Err: err}
	}

	return c.withRetry(ctx, req.Source.Name(), func() (*domain.TranscriptResult, error) {
		return c.transcribeOnce(ctx, req)
	})
}

// transcribeOnce performs a single upload and classifies any failure.
func (c *implClient) transcribeOnce(ctx context.Context, req Request) (*domain.TranscriptResult, error) {
	file, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, &domain.TranscriptionError{Kind: domain.KindProvider, Message: "open audio file", Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, &domain.TranscriptionError{Kind: domain.KindProvider, Message: "stat audio file", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.listenURL(req), file)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.ContentLength = info.Size()
	httpReq.Header.Set("Authorization", "Token "+req.APIKey)
	httpReq.Header.Set("Content-Type", contentType(req.AudioPath))
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TranscriptionError{Kind: domain.KindNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TranscriptionError{Kind: domain.KindNetwork, StatusCode: resp.StatusCode, Message: "read response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TranscriptionError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	result, err := parseResponse(body)
	if err != nil {
		return nil, &domain.TranscriptionError{Kind: domain.KindProvider, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}

	result.Source = req.Source
	result.Model = req.Model
	if result.Language == "" {
		result.Language = req.Language
	}
	return result, nil
}

func (c *implClient) listenURL(req Request) string {
	q := url.Values{}
	q.Set("model", req.Model)
	q.Set("smart_format", strconv.FormatBool(req.SmartFormat))
	q.Set("paragraphs", "true")
	q.Set("utterances", "true")
	if req.Language != "" {
		q.Set("language", req.Language)
	} else {
		q.Set("detect_language", "true")
	}
	return c.opts.BaseURL + "/v1/listen?" + q.Encode()
}

// classifyStatus maps an HTTP status to an error kind.
func classifyStatus(status int) domain.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.KindAuth
	case status == http.StatusPaymentRequired || status == http.StatusTooManyRequests:
		return domain.KindQuotaOrRateLimit
	case status == http.StatusRequestTimeout || status >= 500:
		return domain.KindNetwork
	default:
		return domain.KindProvider
	}
}

// errorMessage extracts the provider's error text from a failure body.
func errorMessage(body []byte) string {
	var apiErr struct {
		ErrCode string `json:"err_code"`
		ErrMsg  string `json:"err_msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		msg := apiErr.ErrMsg
		if msg == "" {
			msg = apiErr.Message
		}
		if msg != "" {
			if apiErr.ErrCode != "" {
				return apiErr.ErrCode + ": " + msg
			}
			return msg
		}
	}
	text := truncate(strings.TrimSpace(string(body)), 500)
	if text == "" {
		text = "empty error response"
	}
	return text
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".opus":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
