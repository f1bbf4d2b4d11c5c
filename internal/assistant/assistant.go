// Package assistant answers free-text questions with retrieval-augmented
// generation: the question is embedded, similar passages are looked up in a
// vector index and sent as context to a chat model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyQuery    = errors.New("assistant: empty query")
	ErrQueryTooLong  = errors.New("assistant: query too long")
	ErrEmptyResponse = errors.New("assistant: empty model response")
)

// MaxQueryRunes bounds the accepted question length.
const MaxQueryRunes = 2000

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one passage returned by the vector index.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Answer is the model reply together with the passages it was given.
type Answer struct {
	Text    string  `json:"answer"`
	Sources []Match `json:"sources"`
}

const systemPrompt = `Eres el asistente de una aplicación de facturación para negocios de Honduras.
Responde en el idioma de la pregunta, de forma breve y práctica.
Usa solo el contexto proporcionado; si no alcanza, dilo claramente.
Cuando hables de impuestos, recuerda que el ISV general es 15% y 18% para bebidas alcohólicas y tabaco.`

type Service struct {
	embedder  Embedder
	index     Index
	completer Completer
	topK      int
}

func NewService(embedder Embedder, index Index, completer Completer, topK int) *Service {
	if topK <= 0 {
		topK = 4
	}
	return &Service{embedder: embedder, index: index, completer: completer, topK: topK}
}

// Ask runs embed, query and completion in sequence. Any vendor error is
// returned wrapped with the step that failed.
func (s *Service) Ask(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) > MaxQueryRunes {
		return nil, ErrQueryTooLong
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	matches, err := s.index.Query(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	text, err := s.completer.Complete(ctx, BuildPrompt(query, matches))
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	if matches == nil {
		matches = []Match{}
	}
	return &Answer{Text: text, Sources: matches}, nil
}

// BuildPrompt returns the system message followed by a user message holding
// the numbered context passages and the question.
func BuildPrompt(query string, matches []Match) []Message {
	var b strings.Builder
	b.WriteString("Contexto:\n")
	n := 0
	for _, m := range matches {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		n++
		b.WriteString("[" + strconv.Itoa(n) + "] " + text + "\n")
	}
	if n == 0 {
		b.WriteString("(sin contexto)\n")
	}
	b.WriteString("\nPregunta: " + query)
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}
