// Package rewrite turns terse service descriptions into polished proposal
// text through a generative model. Every failure falls back to the input.
package rewrite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-proposals/internal/metrics"
	"go.uber.org/zap"
)

// Backend generates text for a prompt.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Reasons reported when the text comes back unchanged.
const (
	ReasonBlank    = "blank"
	ReasonDisabled = "disabled"
	ReasonFailed   = "failed"
	ReasonEmpty    = "empty"
)

// Outcome is the result of a rewrite. Text is always usable: it is the
// rewritten description or the original one.
type Outcome struct {
	Text      string
	Rewritten bool
	// Reason explains why Rewritten is false.
	Reason string
}

// Rewriter wraps a Backend with the prompt and the fail-open policy.
type Rewriter struct {
	backend Backend
	company string
	log     *zap.Logger
}

// New returns a Rewriter. A nil backend yields a rewriter that always
// returns the input with ReasonDisabled.
func New(backend Backend, company string, log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewriter{backend: backend, company: company, log: log}
}

// Enabled reports whether a backend is configured.
func (r *Rewriter) Enabled() bool {
	return r != nil && r.backend != nil
}

// Rewrite asks the backend for a better description. It never returns an
// error; there is no retry.
func (r *Rewriter) Rewrite(ctx context.Context, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return Outcome{Text: text, Reason: ReasonBlank}
	}
	if !r.Enabled() {
		metrics.Rewrites.WithLabelValues(ReasonDisabled).Inc()
		return Outcome{Text: text, Reason: ReasonDisabled}
	}

	start := time.Now()
	out, err := r.backend.Generate(ctx, Prompt(r.company, text))
	metrics.RewriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.log.Warn("description rewrite failed", zap.Error(err))
		metrics.Rewrites.WithLabelValues(ReasonFailed).Inc()
		return Outcome{Text: text, Reason: ReasonFailed}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		metrics.Rewrites.WithLabelValues(ReasonEmpty).Inc()
		return Outcome{Text: text, Reason: ReasonEmpty}
	}
	metrics.Rewrites.WithLabelValues("rewritten").Inc()
	return Outcome{Text: out, Rewritten: true}
}

// Prompt builds the instruction sent to the model.
func Prompt(company, description string) string {
	if company == "" {
		company = "Raimundix"
	}
	return fmt.Sprintf(`Você é um especialista em orçamentos elétricos profissionais.
Reescreva a seguinte descrição de serviço para torná-la técnica, clara e comercialmente atraente para um orçamento formal da empresa '%s'.
Mantenha o texto objetivo e em português.

Descrição original: "%s"`, company, description)
}
