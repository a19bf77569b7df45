package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sermonflow/internal/model"
)

// Extraction failure modes. NoStructuredOutput means no object was found at
// all; InvalidStructuredOutput means parsing or validation failed even after
// repair. Neither is retried.
var (
	ErrNoStructuredOutput      = errors.New("no structured output found")
	ErrInvalidStructuredOutput = errors.New("invalid structured output")
)

// Defaults substituted when a truncated result drops optional list fields.
// Degrading beats discarding an otherwise-usable result.
var (
	DefaultHashtags    = []string{"#sermon", "#faith", "#hope"}
	DefaultPostingPlan = "Post one quote per day, starting Monday."
)

// ExtractObject recovers the JSON text of the first embedded object in raw
// model output. The output may be wrapped in prose or a fenced code block,
// and may be truncated mid-object; truncation is repaired by cutting at the
// last complete sub-object and closing whatever remains open, sacrificing
// the trailing partial item.
func ExtractObject(raw string) (string, error) {
	s := stripFence(raw)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoStructuredOutput
	}
	s = s[start:]

	depth := 0
	inString := false
	escaped := false
	lastObjClose := -1

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[:i+1], nil
				}
				lastObjClose = i
			}
		}
	}

	// Depth never returned to zero: the object was truncated.
	if lastObjClose < 0 {
		return "", fmt.Errorf("%w: truncated with no complete sub-object", ErrInvalidStructuredOutput)
	}
	return closeOpenBrackets(s[:lastObjClose+1]), nil
}

// closeOpenBrackets appends the closing tokens for every bracket still open
// in s, innermost first.
func closeOpenBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, ch)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '[' {
			b.WriteByte(']')
		} else {
			b.WriteByte('}')
		}
	}
	return b.String()
}

// stripFence returns the inner text of the first fenced code block, or the
// input unchanged when no fence is present.
func stripFence(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	rest = strings.TrimPrefix(rest, "json")
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// DecodePayload extracts, parses, and validates the structured payload for a
// content type. Required list fields lost to truncation are substituted with
// documented defaults; missing required core fields fail with
// ErrInvalidStructuredOutput.
func DecodePayload(contentType, raw string) (any, error) {
	text, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}

	switch contentType {
	case model.ContentNotes:
		var p NotesPayload
		if err := unmarshalStrictEnough(text, &p); err != nil {
			return nil, err
		}
		if p.Title == "" || len(p.Sections) == 0 {
			return nil, fmt.Errorf("%w: notes require title and sections", ErrInvalidStructuredOutput)
		}
		return &p, nil

	case model.ContentDevotional:
		var p DevotionalPayload
		if err := unmarshalStrictEnough(text, &p); err != nil {
			return nil, err
		}
		if p.Title == "" || p.Body == "" {
			return nil, fmt.Errorf("%w: devotional requires title and body", ErrInvalidStructuredOutput)
		}
		if p.Scriptures == nil {
			p.Scriptures = []string{}
		}
		if p.Keywords == nil {
			p.Keywords = []string{}
		}
		return &p, nil

	case model.ContentDiscussionGuide:
		var p DiscussionGuidePayload
		if err := unmarshalStrictEnough(text, &p); err != nil {
			return nil, err
		}
		if len(p.Questions) == 0 {
			return nil, fmt.Errorf("%w: discussion guide requires questions", ErrInvalidStructuredOutput)
		}
		if p.ApplicationQuestions == nil {
			p.ApplicationQuestions = []string{}
		}
		if p.PrayerPoints == nil {
			p.PrayerPoints = []string{}
		}
		return &p, nil

	case model.ContentSocialMedia:
		var p SocialMediaPayload
		if err := unmarshalStrictEnough(text, &p); err != nil {
			return nil, err
		}
		if len(p.Quotes) == 0 {
			return nil, fmt.Errorf("%w: social kit requires quotes", ErrInvalidStructuredOutput)
		}
		if len(p.Hashtags) == 0 {
			p.Hashtags = DefaultHashtags
		}
		if p.PostingPlan == "" {
			p.PostingPlan = DefaultPostingPlan
		}
		return &p, nil

	default:
		return nil, fmt.Errorf("%w: unknown content type %q", ErrInvalidStructuredOutput, contentType)
	}
}

func unmarshalStrictEnough(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStructuredOutput, err)
	}
	return nil
}
