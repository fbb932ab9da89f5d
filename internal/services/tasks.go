package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-proposals/internal/metrics"
	"github.com/diewo77/go-proposals/internal/models"
	"github.com/diewo77/go-proposals/internal/render"
	"github.com/diewo77/go-proposals/internal/repository"
	"github.com/diewo77/go-proposals/internal/rewrite"
	"go.uber.org/zap"
)

// RewriteResult reports a finished description rewrite. Applied is false
// when the user navigated away before the result arrived.
type RewriteResult struct {
	ItemID  string
	Outcome rewrite.Outcome
	Applied bool
}

// ExportResult reports a finished PDF export. Path is set when a sink
// stored the file.
type ExportResult struct {
	ProposalID string
	Document   render.Document
	Path       string
	Err        error
}

// RewriteItem rewrites one item description of the working copy in the
// background. Only that item is marked busy. The result is applied only if
// the same proposal is still open in the form; the task is never cancelled.
func (c *Controller) RewriteItem(ctx context.Context, itemID string) (<-chan RewriteResult, error) {
	c.mu.Lock()
	if c.working == nil {
		c.mu.Unlock()
		return nil, ErrNoWorkingCopy
	}
	item, err := c.working.Item(itemID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.rewriting[itemID] {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.rewriting[itemID] = true
	text := item.Description
	proposalID := c.working.ID
	gen := c.generation
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	ch := make(chan RewriteResult, 1)
	go func() {
		defer close(ch)
		out := c.rewriter.Rewrite(ctx, text)
		ch <- c.finishRewrite(gen, proposalID, itemID, out)
	}()
	return ch, nil
}

func (c *Controller) finishRewrite(gen uint64, proposalID, itemID string, out rewrite.Outcome) RewriteResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rewriting, itemID)

	res := RewriteResult{ItemID: itemID, Outcome: out}
	if c.working == nil || c.working.ID != proposalID || c.generation != gen {
		c.log.Debug("dropping late rewrite result", zap.String("proposal", proposalID), zap.String("item", itemID))
		return res
	}
	item, err := c.working.Item(itemID)
	if err != nil {
		return res
	}
	res.Applied = true
	if out.Rewritten {
		item.Description = out.Text
		c.notify("description_optimized", NoticeSuccess)
	} else {
		c.notify("description_unchanged", NoticeInfo)
	}
	return res
}

// Export renders a stored proposal to PDF in the background and hands it
// to the sink when one is configured. Only that proposal is marked busy.
func (c *Controller) Export(ctx context.Context, id string) (<-chan ExportResult, error) {
	if c.documents == nil {
		return nil, errors.New("export: no document renderer configured")
	}
	c.mu.Lock()
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("export %s: %w", id, repository.ErrNotFound)
	}
	if c.exporting[id] {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.exporting[id] = true
	p := c.proposals[idx].Clone()
	gen := c.generation
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	ch := make(chan ExportResult, 1)
	go func() {
		defer close(ch)
		ch <- c.runExport(ctx, gen, p)
	}()
	return ch, nil
}

func (c *Controller) runExport(ctx context.Context, gen uint64, p models.Proposal) ExportResult {
	res := ExportResult{ProposalID: p.ID}
	res.Document, res.Err = c.documents.Document(p)
	if res.Err == nil && c.sink != nil {
		res.Path, res.Err = c.sink.Deliver(ctx, res.Document)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exporting, p.ID)
	if res.Err != nil {
		metrics.Exports.WithLabelValues("error").Inc()
		c.log.Error("export failed", zap.String("number", p.Number), zap.Error(res.Err))
	} else {
		metrics.Exports.WithLabelValues("ok").Inc()
		c.log.Info("proposal exported", zap.String("number", p.Number), zap.String("path", res.Path))
	}
	if c.generation != gen {
		return res
	}
	if res.Err != nil {
		c.notify("export_failed", NoticeError)
	} else {
		c.notify("export_done", NoticeSuccess)
	}
	return res
}
