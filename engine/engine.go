// Package engine define o contrato com o motor de raciocínio externo e os
// clientes concretos (Anthropic Messages API e Gemini).
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured indica que a chave da API não foi configurada.
var ErrNotConfigured = errors.New("engine: api key not configured")

// SegmentText é o único tipo de segmento que carrega a resposta.
// Os demais (tool use, resultados de busca, raciocínio) são ignorados.
const SegmentText = "text"

type Request struct {
	System    string
	User      string
	MaxTokens int
	// WebSearch habilita a ferramenta de busca do provedor.
	WebSearch bool
}

type Segment struct {
	Type string
	Text string
}

type Response struct {
	Segments []Segment
}

// Text concatena, em ordem, o texto dos segmentos do tipo "text".
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range r.Segments {
		if s.Type == SegmentText {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Engine executa uma única chamada ao motor. Implementações não fazem retry.
type Engine interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// StatusError é uma resposta não-2xx do provedor.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: upstream returned status %d", e.StatusCode)
}

// Func adapta uma função para Engine.
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
