package deepgram

import (
	"net/http"
	"strings"
	"time"

	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
)

const (
	defaultBaseURL = "https://api.deepgram.com"
	defaultTimeout = 10 * time.Minute
)

// Options configures the client. Zero values fall back to defaults.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	HTTPClient     *http.Client
}

type implClient struct {
	opts   Options
	http   *http.Client
	logger logger.Logger
}

// New creates a Deepgram Client.
func New(opts Options, log logger.Logger) Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &implClient{
		opts:   opts,
		http:   httpClient,
		logger: log,
	}
}
