package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// maxDownloadSize caps remote media downloads (500 MB).
const maxDownloadSize = 500 * 1024 * 1024

// WhisperClient transcribes audio/video media through the OpenAI Whisper API.
// Remote media references are downloaded to a temp file first; the API takes
// file paths.
type WhisperClient struct {
	client     *openai.Client
	httpClient *http.Client
	minChars   int
}

// NewWhisperClient creates a Whisper transcription client.
func NewWhisperClient(apiKey string, minChars int, timeout time.Duration) *WhisperClient {
	return &WhisperClient{
		client:     openai.NewClient(apiKey),
		httpClient: &http.Client{Timeout: timeout},
		minChars:   minChars,
	}
}

// Transcribe resolves the media reference to a local file and runs Whisper on it.
func (c *WhisperClient) Transcribe(ctx context.Context, mediaRef string) (*Result, error) {
	path, cleanup, err := c.localize(ctx, mediaRef)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	text := strings.TrimSpace(resp.Text)
	if err := checkLength(text, c.minChars); err != nil {
		return nil, err
	}

	return &Result{Text: text, Language: detectLanguage(text)}, nil
}

// localize returns a local file path for the media reference, downloading
// remote URLs to a temp file. The cleanup func removes any temp file.
func (c *WhisperClient) localize(ctx context.Context, mediaRef string) (string, func(), error) {
	noop := func() {}

	if !strings.HasPrefix(mediaRef, "http://") && !strings.HasPrefix(mediaRef, "https://") {
		if _, err := os.Stat(mediaRef); err != nil {
			return "", noop, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return mediaRef, noop, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaRef, nil)
	if err != nil {
		return "", noop, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", noop, fmt.Errorf("%w: HTTP %d fetching media", ErrSourceUnavailable, resp.StatusCode)
	}

	ext := filepath.Ext(mediaRef)
	if ext == "" {
		ext = ".mp3"
	}
	tmp, err := os.CreateTemp("", "sermon-media-*"+ext)
	if err != nil {
		return "", noop, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, io.LimitReader(resp.Body, maxDownloadSize)); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("%w: download: %v", ErrSourceUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}
