package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// maxBodySize is the maximum HTTP response body size (5MB).
const maxBodySize = 5 * 1024 * 1024

// ArticleClient derives a transcript from a sermon manuscript or article URL
// by extracting its readable text.
type ArticleClient struct {
	client   *http.Client
	minChars int
}

// NewArticleClient creates a readability-based document client.
func NewArticleClient(minChars int, timeout time.Duration) *ArticleClient {
	return &ArticleClient{
		client:   &http.Client{Timeout: timeout},
		minChars: minChars,
	}
}

// Transcribe fetches the URL and extracts the main text in a single attempt.
func (c *ArticleClient) Transcribe(ctx context.Context, mediaRef string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaRef, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	// Use a realistic browser User-Agent to avoid being blocked by sites.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d for %s", ErrSourceUnavailable, resp.StatusCode, mediaRef)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}

	parsedURL, _ := nurl.Parse(mediaRef)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: readability: %v", ErrTranscriptionFailed, err)
	}

	text := normalizeText(article.TextContent)
	if err := checkLength(text, c.minChars); err != nil {
		return nil, err
	}

	return &Result{Text: text, Language: detectLanguage(text)}, nil
}

var multiSpace = regexp.MustCompile(`[ \t]+`)
var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
