// Package enrichment extracts emotion, themes, people and urgency from entry
// text using a local Ollama model. Extraction is best-effort: every failure
// path returns an empty Enrichment and a nil error so entry capture never
// depends on model availability.
package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/model"
)

// Extractor produces enrichment metadata for entry content. patternContext
// is the relevance block describing the user's learned patterns; it may be
// empty and only steers the model, never the parse.
type Extractor interface {
	Extract(ctx context.Context, content, patternContext string) (model.Enrichment, error)
}

// Noop returns an Extractor that always reports zero signal. Used when no
// Ollama endpoint is configured.
func Noop() Extractor { return noop{} }

type noop struct{}

func (noop) Extract(context.Context, string, string) (model.Enrichment, error) {
	return model.Enrichment{}, nil
}

// OllamaExtractor calls the local Ollama generate API and parses the model's
// JSON reply.
type OllamaExtractor struct {
	client *resty.Client
	model  string
	log    zerolog.Logger
}

// NewOllama builds an extractor against the given base URL (for example
// http://localhost:11434) and model name.
func NewOllama(baseURL, modelName string, timeout time.Duration, log zerolog.Logger) *OllamaExtractor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &OllamaExtractor{client: c, model: modelName, log: log}
}

const extractPrompt = `Analyze this journal entry and respond with ONLY a JSON object, no other text:
{"emotion": "one word, e.g. happy/stressed/calm/anxious/excited/sad/neutral",
"themes": ["up to 3 lowercase topic words"],
"people": [{"name": "Name as written", "sentiment": "positive/negative/neutral"}],
"urgency": "none/low/medium/high"}

Entry:
`

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Extract asks the model for enrichment. A missing model, timeout, transport
// error or unparseable reply all degrade to zero signal.
func (e *OllamaExtractor) Extract(ctx context.Context, content, patternContext string) (model.Enrichment, error) {
	if strings.TrimSpace(content) == "" {
		return model.Enrichment{}, nil
	}

	prompt := extractPrompt
	if patternContext != "" {
		prompt = "Known patterns about this user:\n" + patternContext + "\n\n" + prompt
	}
	req := generateRequest{
		Model:  e.model,
		Prompt: prompt + content,
		Stream: false,
		Format: "json",
	}
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(&req).
		Post("/api/generate")
	if err != nil {
		e.log.Debug().Err(err).Msg("enrichment request failed, continuing without signal")
		return model.Enrichment{}, nil
	}
	if resp.StatusCode() != http.StatusOK {
		e.log.Debug().Int("status", resp.StatusCode()).Msg("enrichment request rejected, continuing without signal")
		return model.Enrichment{}, nil
	}

	var gr generateResponse
	if err := json.Unmarshal(resp.Body(), &gr); err != nil {
		e.log.Debug().Err(err).Msg("enrichment response undecodable")
		return model.Enrichment{}, nil
	}
	return parseReply(gr.Response), nil
}

// parseReply decodes the model's JSON, tolerating leading or trailing prose
// around the object.
func parseReply(s string) model.Enrichment {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return model.Enrichment{}
	}

	var raw struct {
		Emotion string   `json:"emotion"`
		Themes  []string `json:"themes"`
		People  []struct {
			Name      string `json:"name"`
			Sentiment string `json:"sentiment"`
		} `json:"people"`
		Urgency string `json:"urgency"`
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return model.Enrichment{}
	}

	out := model.Enrichment{
		Emotion: strings.ToLower(strings.TrimSpace(raw.Emotion)),
		Urgency: normalizeUrgency(raw.Urgency),
	}
	for _, t := range raw.Themes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out.Themes = append(out.Themes, t)
		}
		if len(out.Themes) == 3 {
			break
		}
	}
	for _, p := range raw.People {
		if name := strings.TrimSpace(p.Name); name != "" {
			out.People = append(out.People, model.Person{
				Name:      name,
				Sentiment: strings.ToLower(strings.TrimSpace(p.Sentiment)),
			})
		}
	}
	return out
}

func normalizeUrgency(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case model.UrgencyLow:
		return model.UrgencyLow
	case model.UrgencyMedium:
		return model.UrgencyMedium
	case model.UrgencyHigh:
		return model.UrgencyHigh
	case model.UrgencyNone:
		return model.UrgencyNone
	default:
		return ""
	}
}
