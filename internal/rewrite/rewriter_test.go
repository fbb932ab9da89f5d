package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBackend struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeBackend) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		backend   *fakeBackend
		want      Outcome
		wantCalls int
	}{
		{
			name:      "rewritten",
			input:     "trocar disjuntor",
			backend:   &fakeBackend{reply: "  Substituição de disjuntor termomagnético.\n"},
			want:      Outcome{Text: "Substituição de disjuntor termomagnético.", Rewritten: true},
			wantCalls: 1,
		},
		{
			name:      "empty input skips backend",
			input:     "",
			backend:   &fakeBackend{reply: "x"},
			want:      Outcome{Text: "", Reason: ReasonBlank},
			wantCalls: 0,
		},
		{
			name:      "blank input skips backend",
			input:     "   ",
			backend:   &fakeBackend{reply: "x"},
			want:      Outcome{Text: "   ", Reason: ReasonBlank},
			wantCalls: 0,
		},
		{
			name:      "backend error keeps original",
			input:     "fiação",
			backend:   &fakeBackend{err: errors.New("quota")},
			want:      Outcome{Text: "fiação", Reason: ReasonFailed},
			wantCalls: 1,
		},
		{
			name:      "empty answer keeps original",
			input:     "fiação",
			backend:   &fakeBackend{reply: " \n "},
			want:      Outcome{Text: "fiação", Reason: ReasonEmpty},
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.backend, "Raimundix", nil)
			got := r.Rewrite(context.Background(), tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.backend.calls)
		})
	}
}

func TestRewriteDisabled(t *testing.T) {
	r := New(nil, "", nil)
	assert.False(t, r.Enabled())
	got := r.Rewrite(context.Background(), "quadro")
	assert.Equal(t, Outcome{Text: "quadro", Reason: ReasonDisabled}, got)
}

func TestPromptCarriesDescription(t *testing.T) {
	fb := &fakeBackend{reply: "ok"}
	New(fb, "Eletro Sul", nil).Rewrite(context.Background(), "passar cabo 10mm")
	assert.True(t, strings.Contains(fb.prompt, `"passar cabo 10mm"`))
	assert.True(t, strings.Contains(fb.prompt, "'Eletro Sul'"))
	assert.Contains(t, Prompt("", "x"), "'Raimundix'")
}

func TestNewGenAIBackendNeedsKey(t *testing.T) {
	_, err := NewGenAIBackend(context.Background(), "", "")
	assert.Error(t, err)
}
