package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/card-txn-console/internal/logger"
	"github.com/dvloznov/card-txn-console/internal/queries"
)

// DefaultModelName is the Gemini model used for triage.
const DefaultModelName = "gemini-2.5-flash"

const systemPrompt = "You triage customer questions about card transactions.\n\n" +
	"Return STRICT JSON only, a single object with these fields:\n" +
	"- \"priority\": one of \"HIGH\", \"MEDIUM\", \"LOW\"\n" +
	"- \"category\": one of \"FRAUD\", \"DUPLICATE\", \"REFUND\", \"BILLING\", \"DELIVERY\", \"GENERAL\"\n\n" +
	"Suspected fraud, duplicate charges and refunds are HIGH.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClassifier asks a Gemini model to classify queries and falls back to
// keyword rules when the model answer is unusable.
type GeminiClassifier struct {
	models   contentGenerator
	model    string
	fallback Classifier
}

// NewGeminiClassifier creates a classifier backed by the Gemini API. The API
// key and backend are taken from the environment, as genai.NewClient does.
func NewGeminiClassifier(ctx context.Context, model string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClassifier: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClassifier{models: client.Models, model: model, fallback: RuleClassifier{}}, nil
}

// Classify implements Classifier. Transport errors are returned so the queue
// can retry; malformed answers fall back to the rules.
func (g *GeminiClassifier) Classify(ctx context.Context, q queries.TxnQuery) (Triage, error) {
	prompt := fmt.Sprintf("Transaction ID: %s\nSummary: %s\nDescription: %s\n", q.TxnID, q.Summary, q.Description)

	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       &temperature,
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return Triage{}, fmt.Errorf("GeminiClassifier.Classify: generate content: %w", err)
	}

	t, err := parseTriage(resp.Text())
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().
			Err(err).
			Str("query_id", q.QueryID).
			Msg("Model triage unusable, using keyword rules")
		return g.fallback.Classify(ctx, q)
	}
	return t, nil
}

func parseTriage(raw string) (Triage, error) {
	if strings.TrimSpace(raw) == "" {
		return Triage{}, fmt.Errorf("parseTriage: empty response from model")
	}

	var t Triage
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &t); err != nil {
		return Triage{}, fmt.Errorf("parseTriage: unmarshal JSON: %w", err)
	}

	t.Priority = strings.ToUpper(strings.TrimSpace(t.Priority))
	t.Category = strings.ToUpper(strings.TrimSpace(t.Category))
	if !validPriority(t.Priority) || !validCategory(t.Category) {
		return Triage{}, fmt.Errorf("parseTriage: unexpected values %q/%q", t.Priority, t.Category)
	}
	return t, nil
}

// cleanModelJSON strips Markdown fences and any text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}

var (
	_ Classifier = RuleClassifier{}
	_ Classifier = (*GeminiClassifier)(nil)
)
