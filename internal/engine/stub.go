package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"sermonflow/internal/model"
)

// StubContentClient returns canned, schema-valid generation output
// (for development/testing).
type StubContentClient struct{}

func (s *StubContentClient) Generate(_ context.Context, contentType, _ string, _ GenerationContext) (*GenerationResult, error) {
	var payload any
	switch contentType {
	case model.ContentNotes:
		payload = NotesPayload{
			Title: "[Stub] Walking in Grace",
			Sections: []NotesSection{
				{Heading: "Grace is given, not earned", Points: []NotesPoint{
					{Text: "Grace meets us before we change."},
					{Text: "God's grace is ____.", FillInBlank: true, Answer: "sufficient"},
				}},
				{Heading: "Grace changes how we live", Points: []NotesPoint{
					{Text: "Forgiven people forgive."},
					{Text: "Serve your neighbor this week in one concrete way."},
				}},
			},
		}
	case model.ContentDevotional:
		payload = DevotionalPayload{
			Title:      "[Stub] Morning by Morning",
			Body:       "Grace is not a reward for the strong but a gift for the weary. Take five minutes today to name one place you are trying to earn what has already been given. What would it look like to receive instead?",
			Scriptures: []string{"Ephesians 2:8-9", "Lamentations 3:22-23"},
			Keywords:   []string{"grace", "rest", "gift"},
		}
	case model.ContentDiscussionGuide:
		payload = DiscussionGuidePayload{
			Icebreaker: "Share a gift you received that you did not expect.",
			Questions: []ScriptureQuestion{
				{Question: "What does it mean that grace is a gift?", Scripture: "Ephesians 2:8-9"},
				{Question: "Where do you see mercy renewed in your week?", Scripture: "Lamentations 3:22-23"},
			},
			ApplicationQuestions: []string{"Where are you still trying to earn acceptance?"},
			Activity:             "Write an anonymous note of encouragement for another group member.",
			PrayerPoints:         []string{"Rest in what is given", "Eyes to see the weary"},
		}
	case model.ContentSocialMedia:
		payload = SocialMediaPayload{
			Quotes: []SocialQuote{
				{
					Quote:            "Grace meets us before we change.",
					InstagramCaption: "Grace meets us before we change. ✨ New message up now.",
					TwitterCaption:   "Grace meets us before we change.",
					FacebookCaption:  "This week we looked at what it means that grace comes first. Full message at the link.",
				},
				{
					Quote:            "Forgiven people forgive.",
					InstagramCaption: "Forgiven people forgive. Who comes to mind?",
					TwitterCaption:   "Forgiven people forgive.",
					FacebookCaption:  "Forgiven people forgive. Join us Sunday as the series continues.",
				},
			},
			Hashtags:    []string{"#grace", "#sermon", "#church"},
			PostingPlan: "Post the first quote Monday morning and the second Thursday at noon.",
		}
	default:
		return nil, fmt.Errorf("stub: unknown content type %q", contentType)
	}

	b, _ := json.Marshal(payload)
	return &GenerationResult{Text: string(b)}, nil
}
