package commentary

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/msgcat"
)

type stubModel struct {
	text  string
	err   error
	calls int
	last  string
}

func (s *stubModel) Generate(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.last = prompt
	return s.text, s.err
}

func sampleContext() domain.CommentContext {
	return domain.CommentContext{
		Move:       domain.MoveInfo{UCI: "e2e4", SAN: "e4", Piece: "pawn"},
		Phase:      domain.PhaseOpening,
		EvalChange: -5,
		Opening:    &domain.Opening{ECO: "B00", Name: "King's Pawn"},
	}
}

func TestCommentUsesModel(t *testing.T) {
	model := &stubModel{text: "\n\"Central control keeps the balance firmly in place.\"\nextra"}
	g := NewGenerator(model, nil, time.Second, nil)

	got := g.Comment(context.Background(), domain.LabelBest, sampleContext())
	if got.Source != domain.CommentaryFromModel {
		t.Fatalf("source = %s", got.Source)
	}
	if got.Text != "Central control keeps the balance firmly in place." {
		t.Fatalf("text = %q", got.Text)
	}
	if model.calls != 1 {
		t.Fatalf("model called %d times", model.calls)
	}
	for _, want := range []string{"Move: e4", "Piece: pawn", "Phase: opening", "Quality: best", "Eval delta: -5", "Opening: B00", "Maximum 15 words"} {
		if !strings.Contains(model.last, want) {
			t.Fatalf("prompt missing %q:\n%s", want, model.last)
		}
	}
}

func TestCommentFallsBackOnceOnError(t *testing.T) {
	model := &stubModel{err: errors.New("connection refused")}
	g := NewGenerator(model, nil, time.Second, nil)

	got := g.Comment(context.Background(), domain.LabelBlunder, sampleContext())
	if model.calls != 1 {
		t.Fatalf("model called %d times, want exactly one attempt", model.calls)
	}
	if got.Source != domain.CommentaryFromFallback {
		t.Fatalf("source = %s", got.Source)
	}
	if !strings.Contains(got.Text, "loss") {
		t.Fatalf("blunder fallback should describe loss: %q", got.Text)
	}
}

func TestCommentFallsBackOnEmptyText(t *testing.T) {
	g := NewGenerator(&stubModel{text: "   \n  "}, nil, time.Second, nil)
	got := g.Comment(context.Background(), domain.LabelGood, sampleContext())
	if got.Source != domain.CommentaryFromFallback || got.Text == "" {
		t.Fatalf("unexpected commentary %+v", got)
	}
}

func TestCommentWithoutModel(t *testing.T) {
	g := NewGenerator(nil, nil, 0, nil)
	for _, label := range []domain.QualityLabel{
		domain.LabelBest, domain.LabelGood, domain.LabelInaccuracy,
		domain.LabelMistake, domain.LabelBlunder, domain.LabelUnknown, "bogus",
	} {
		got := g.Comment(context.Background(), label, domain.CommentContext{})
		if strings.TrimSpace(got.Text) == "" {
			t.Fatalf("empty commentary for %s", label)
		}
	}
}

func TestFinalFallbackWhenCatalogBroken(t *testing.T) {
	g := &Generator{catalog: &msgcat.Catalog{}}
	if got := g.fallback(domain.LabelBest, templateData{}); got != FinalFallback {
		t.Fatalf("fallback = %q", got)
	}
}

func serveOllama(t *testing.T, handler fasthttp.RequestHandler) *fasthttputil.InmemoryListener {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, handler) }()
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func TestOllamaClientGenerate(t *testing.T) {
	var got generateRequest
	ln := serveOllama(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/generate" || !ctx.IsPost() {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"response":"A calm developing move.","done":true}`)
	})

	client := NewOllamaClient("http://ollama.local/", "llama3",
		WithTimeout(2*time.Second),
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }))

	text, err := client.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "A calm developing move." {
		t.Fatalf("text = %q", text)
	}
	if got.Model != "llama3" || got.Prompt != "hello" || got.Stream {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestOllamaClientStatusError(t *testing.T) {
	var calls atomic.Int32
	ln := serveOllama(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("model not loaded")
	})
	client := NewOllamaClient("http://ollama.local", "llama3",
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }))

	if _, err := client.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected status error")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("server hit %d times, want 1", n)
	}
}

func TestOllamaUnreachableFallsBack(t *testing.T) {
	client := NewOllamaClient("http://127.0.0.1:1", "llama3", WithTimeout(500*time.Millisecond))
	g := NewGenerator(client, nil, time.Second, nil)

	got := g.Comment(context.Background(), domain.LabelMistake, sampleContext())
	if got.Source != domain.CommentaryFromFallback || got.Text == "" {
		t.Fatalf("unexpected commentary %+v", got)
	}
}

func TestOllamaReadTimeoutFollowsTimeout(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", "llama3", WithTimeout(90*time.Second))
	if c.http.ReadTimeout != 90*time.Second {
		t.Fatalf("read timeout = %s, want 90s", c.http.ReadTimeout)
	}
	if d := NewOllamaClient("http://localhost:11434", "llama3"); d.http.ReadTimeout != d.defaultTimeout {
		t.Fatalf("default read timeout = %s", d.http.ReadTimeout)
	}
}
