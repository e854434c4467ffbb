package deepgram

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// listenResponse is the subset of the /v1/listen response the pipeline reads.
type listenResponse struct {
	Metadata struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
	} `json:"metadata"`
	Results *struct {
		Channels []struct {
			DetectedLanguage string        `json:"detected_language"`
			Alternatives     []alternative `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Confidence float64 `json:"confidence"`
			Transcript string  `json:"transcript"`
		} `json:"utterances"`
	} `json:"results"`
}

type alternative struct {
	Transcript string   `json:"transcript"`
	Confidence *float64 `json:"confidence"`
	Words      []word   `json:"words"`
	Paragraphs *struct {
		Transcript string `json:"transcript"`
		Paragraphs []struct {
			Sentences []struct {
				Text  string  `json:"text"`
				Start float64 `json:"start"`
				End   float64 `json:"end"`
			} `json:"sentences"`
		} `json:"paragraphs"`
	} `json:"paragraphs"`
}

type word struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// parseResponse converts a raw provider body into a TranscriptResult.
func parseResponse(body []byte) (*domain.TranscriptResult, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errors.New("empty body")
	}

	var resp listenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Results == nil || len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return nil, errors.New("response has no transcript alternatives")
	}

	channel := resp.Results.Channels[0]
	alt := channel.Alternatives[0]

	text := alt.Transcript
	if alt.Paragraphs != nil && strings.TrimSpace(alt.Paragraphs.Transcript) != "" {
		text = alt.Paragraphs.Transcript
	}
	text = strings.TrimSpace(text)

	result := &domain.TranscriptResult{
		Text:       text,
		Language:   channel.DetectedLanguage,
		Confidence: alt.Confidence,
		Duration:   resp.Metadata.Duration,
		RequestID:  resp.Metadata.RequestID,
		Raw:        append([]byte(nil), body...),
	}

	switch {
	case len(resp.Results.Utterances) > 0:
		for _, u := range resp.Results.Utterances {
			result.Segments = append(result.Segments, domain.Segment{
				Text:       strings.TrimSpace(u.Transcript),
				Start:      u.Start,
				End:        u.End,
				Confidence: u.Confidence,
			})
		}
	case alt.Paragraphs != nil && len(alt.Paragraphs.Paragraphs) > 0:
		for _, p := range alt.Paragraphs.Paragraphs {
			for _, s := range p.Sentences {
				result.Segments = append(result.Segments, domain.Segment{
					Text:       strings.TrimSpace(s.Text),
					Start:      s.Start,
					End:        s.End,
					Confidence: meanConfidence(alt.Words, s.Start, s.End),
				})
			}
		}
	case text != "":
		seg := domain.Segment{Text: text, End: resp.Metadata.Duration}
		if alt.Confidence != nil {
			seg.Confidence = *alt.Confidence
		}
		if n := len(alt.Words); n > 0 {
			seg.Start = alt.Words[0].Start
			seg.End = alt.Words[n-1].End
		}
		result.Segments = []domain.Segment{seg}
	}

	return result, nil
}

// meanConfidence averages the confidence of words inside [start, end].
func meanConfidence(words []word, start, end float64) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if w.Start >= start && w.End <= end {
			sum += w.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
