// Package assistant answers free-form questions about the dashboard state,
// through Gemini when an API key is configured and through keyword rules
// otherwise.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"autosense/internal/engine"
	"autosense/internal/projector"
)

// Source names who produced an answer.
const (
	SourceGemini = "gemini"
	SourceRules  = "rules"
)

// Context is the dashboard state a question is answered against.
type Context struct {
	Online     bool                  `json:"server_online"`
	Metrics    projector.Metrics     `json:"metrics"`
	Alerts     []projector.Alert     `json:"alerts,omitempty"`
	Prediction *projector.Prediction `json:"prediction,omitempty"`
}

// Answer is the reply to one question.
type Answer struct {
	Text   string `json:"text"`
	Intent Intent `json:"intent"`
	Source string `json:"source"`
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type geminiGenerator struct {
	client *genai.Client
	config ModelConfig
}

// getModel returns a configured GenerativeModel instance.
func (g *geminiGenerator) getModel() *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.config.Name)
	model.SetTemperature(g.config.Temperature)
	model.SetTopP(g.config.TopP)
	model.SetTopK(g.config.TopK)
	return model
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.getModel().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from Gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("empty response from Gemini")
	}
	return strings.TrimSpace(b.String()), nil
}

// Assistant answers questions. It is safe for concurrent use.
type Assistant struct {
	gen    Generator
	close  func() error
	logger *slog.Logger
}

// New creates an assistant. With an empty apiKey only the rule set is used.
func New(ctx context.Context, apiKey, modelKey string, logger *slog.Logger) (*Assistant, error) {
	if apiKey == "" {
		return NewWithGenerator(nil, logger), nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("assistant: create gemini client: %w", err)
	}
	a := NewWithGenerator(&geminiGenerator{client: client, config: ResolveModel(modelKey)}, logger)
	a.close = client.Close
	return a, nil
}

// NewWithGenerator creates an assistant around gen; nil gen means rules only.
func NewWithGenerator(gen Generator, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assistant{gen: gen, logger: logger}
}

// UsesModel reports whether answers come from Gemini.
func (a *Assistant) UsesModel() bool {
	return a.gen != nil
}

// Close releases the Gemini client, if any.
func (a *Assistant) Close() error {
	if a.close != nil {
		return a.close()
	}
	return nil
}

// Ask answers question against c. A failing model falls back to the rules.
func (a *Assistant) Ask(ctx context.Context, question string, c Context) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, errors.New("assistant: empty question")
	}
	intent := ParseIntent(question)

	if a.gen != nil {
		text, err := a.gen.Generate(ctx, buildPrompt(question, c))
		if err == nil {
			return Answer{Text: text, Intent: intent, Source: SourceGemini}, nil
		}
		if ctx.Err() != nil {
			return Answer{}, ctx.Err()
		}
		a.logger.Warn("gemini unavailable, using rules", slog.String("error", err.Error()))
	}
	return Answer{Text: Rules(intent, c), Intent: intent, Source: SourceRules}, nil
}

func buildPrompt(question string, c Context) string {
	state, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		state = []byte("{}")
	}
	return fmt.Sprintf(`You are AutoSense X, a system health assistant. Answer the user's question using the current dashboard state.

Question: %s

Dashboard state (JSON):
%s

Available actions: boost RAM, clean junk files, auto-optimize, AI health prediction, PDF report.
Answer in at most four short sentences. Mention a specific action when one would help.
If the state is insufficient, say so clearly.`, question, string(state))
}

// Rules answers intent from c without a model.
func Rules(intent Intent, c Context) string {
	m := c.Metrics
	switch intent {
	case IntentBoostRAM:
		return fmt.Sprintf("Memory is at %.1f%% (%.1f GB of %.1f GB). Run Boost RAM to free memory.",
			m.MemoryPercent, m.MemoryUsedGB, m.MemoryTotalGB)
	case IntentOptimize:
		return fmt.Sprintf("CPU is at %.1f%% with %d processes. Run Auto Optimize to tune the system.",
			m.CPUPercent, m.ProcessCount)
	case IntentClean:
		return "Run Clean Junk to scan for junk files. You will be asked to confirm before anything is removed."
	case IntentStatus:
		return statusText(c)
	case IntentReport:
		return "Generate the PDF report from the AI page or with `autosense report`."
	}
	return "I didn't understand that. You can ask me to boost RAM, optimize the system, clean junk files, check status, or generate a report."
}

func statusText(c Context) string {
	if c.Prediction != nil && c.Prediction.Level != "" {
		text := fmt.Sprintf("System health is %s.", strings.ToLower(c.Prediction.Level))
		if c.Prediction.Explanation != "" {
			text += " " + c.Prediction.Explanation
		}
		return text
	}
	if !c.Online && c.Metrics == (projector.Metrics{}) {
		return "The server is offline and no local snapshot is available."
	}
	m := c.Metrics
	overall := engine.Overall(engine.Evaluate(m))
	text := fmt.Sprintf("CPU %.1f%%, memory %.1f%%, disk %.1f%%. Overall status %s.",
		m.CPUPercent, m.MemoryPercent, m.DiskPercent, overall)
	if n := len(c.Alerts); n > 0 {
		text += fmt.Sprintf(" %d active alert(s).", n)
	}
	return text
}
