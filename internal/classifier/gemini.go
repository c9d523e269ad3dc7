package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/sehyunkim/finbook/internal/finance"
)

const geminiPrompt = "You are a sentiment classifier for short personal-finance notes.\n\n" +
	"Task:\n" +
	"- Classify the sentiment of the text below.\n" +
	"- Output STRICT JSON only (no comments, no extra text).\n" +
	"- Output a single JSON object with these fields:\n" +
	"  - \"sentiment\": string, one of \"POSITIVE\", \"NEGATIVE\", \"NEUTRAL\"\n" +
	"  - \"score\": number between 0 and 1, your confidence in the label\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n\n" +
	"Text:\n"

// Gemini classifies text with a Gemini model. API credentials come from the
// environment, per the genai client defaults.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Classify(ctx context.Context, text string) (finance.Sentiment, float64, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: geminiPrompt + text},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", 0, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return "", 0, fmt.Errorf("empty response from model")
	}

	var out struct {
		Sentiment string  `json:"sentiment"`
		Score     float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &out); err != nil {
		return "", 0, fmt.Errorf("unmarshal model response: %w\nraw response: %s", err, raw)
	}

	label := finance.Sentiment(strings.ToUpper(strings.TrimSpace(out.Sentiment)))
	if !finance.ValidSentiment(label) {
		return "", 0, fmt.Errorf("model returned unknown sentiment %q", out.Sentiment)
	}
	if out.Score < 0 {
		out.Score = 0
	}
	if out.Score > 1 {
		out.Score = 1
	}
	return label, out.Score, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

var _ Classifier = (*Gemini)(nil)
