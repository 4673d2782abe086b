// Package commentary phrases a one-sentence comment for a graded move.
package commentary

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/msgcat"
)

// Model is a text generator. The Ollama client is the production one.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FinalFallback is returned when neither the model nor a catalog template produced text.
const FinalFallback = "Move noted."

const maxCommentRunes = 240

var errEmptyResponse = errors.New("empty model response")

type Generator struct {
	model   Model
	catalog *msgcat.Catalog
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenerator wires a model and a catalog. A nil model means every comment
// comes from the fallback templates.
func NewGenerator(model Model, catalog *msgcat.Catalog, timeout time.Duration, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = msgcat.MustDefault()
	}
	return &Generator{model: model, catalog: catalog, timeout: timeout, logger: logger}
}

// templateData feeds both the prompt and the fallback templates.
type templateData struct {
	SAN        string
	Piece      string
	Phase      string
	Quality    string
	EvalChange int
	Opening    string
	Outcome    string
}

func newTemplateData(label domain.QualityLabel, c domain.CommentContext) templateData {
	data := templateData{
		SAN:        c.Move.SAN,
		Piece:      c.Move.Piece,
		Phase:      string(c.Phase),
		Quality:    string(label),
		EvalChange: c.EvalChange,
	}
	if data.SAN == "" {
		data.SAN = c.Move.UCI
	}
	if data.Piece == "" {
		data.Piece = "piece"
	}
	if c.Opening != nil {
		data.Opening = strings.TrimSpace(c.Opening.ECO + " " + c.Opening.Name)
	}
	if c.Outcome.Finished() {
		data.Outcome = strings.TrimSpace(c.Outcome.Result + " " + c.Outcome.Method)
	}
	return data
}

// Comment makes at most one model call and never returns empty text.
func (g *Generator) Comment(ctx context.Context, label domain.QualityLabel, c domain.CommentContext) domain.Commentary {
	data := newTemplateData(label, c)

	if g.model != nil {
		text, err := g.ask(ctx, data)
		if err == nil {
			return domain.Commentary{Text: text, Source: domain.CommentaryFromModel}
		}
		g.logger.Warn("commentary_fallback",
			zap.String("move", data.SAN),
			zap.String("quality", data.Quality),
			zap.Error(err))
	}
	return domain.Commentary{Text: g.fallback(label, data), Source: domain.CommentaryFromFallback}
}

func (g *Generator) ask(ctx context.Context, data templateData) (string, error) {
	prompt, err := g.catalog.Render("prompt.commentary", data)
	if err != nil {
		return "", err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	raw, err := g.model.Generate(ctx, prompt)
	if err != nil {
		return "", errors.Join(domain.ErrCommentaryFailed, err)
	}
	text := cleanResponse(raw)
	if text == "" {
		return "", errors.Join(domain.ErrCommentaryFailed, errEmptyResponse)
	}
	return text, nil
}

func (g *Generator) fallback(label domain.QualityLabel, data templateData) string {
	key := "fallback." + string(label)
	if !g.catalog.Has(key) {
		key = "fallback." + string(domain.LabelUnknown)
	}
	if text, err := g.catalog.Render(key, data); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if text, err := g.catalog.Render("fallback.final", data); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	return FinalFallback
}

// cleanResponse keeps the first non-empty line and drops wrapping quotes.
func cleanResponse(raw string) string {
	var line string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = strings.Trim(line, "\"'` ")
	if r := []rune(line); len(r) > maxCommentRunes {
		line = strings.TrimSpace(string(r[:maxCommentRunes])) + "..."
	}
	return line
}
