package interpret

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Engine orchestrates transaction extraction: it asks the model-backed
// interpreter first and falls back to the rule-based parsers whenever the
// interpreter is absent, fails, or returns nothing usable. The rule-based
// path never fails; unextractable input yields an empty result.
type Engine struct {
	interpreter Interpreter
	timeSource  TimeSource
}

// NewEngine creates a new Engine. Pass Disabled{} when no model backend is
// configured.
func NewEngine(interpreter Interpreter) *Engine {
	return NewEngineWithDeps(interpreter, &defaultTimeSource{})
}

// NewEngineWithDeps creates a new Engine with a custom time source for testing
func NewEngineWithDeps(interpreter Interpreter, timeSource TimeSource) *Engine {
	return &Engine{
		interpreter: interpreter,
		timeSource:  timeSource,
	}
}

// InterpretAsEntries extracts ledger entry drafts from free-form text. The
// returned slice is empty, never nil, when nothing can be extracted.
func (e *Engine) InterpretAsEntries(ctx context.Context, text string) []EntryData {
	items, err := e.interpreter.InterpretEntries(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			slog.Warn("Text interpreter failed, using rule-based parser", "error", err)
		}
		return e.ruleBasedEntries(text)
	}

	kept := make([]EntryData, 0, len(items))
	for _, item := range items {
		if item.Amount > 0 {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return e.ruleBasedEntries(text)
	}
	return kept
}

func (e *Engine) ruleBasedEntries(text string) []EntryData {
	item, ok := ParseEntry(text, e.timeSource.Now())
	if !ok {
		return []EntryData{}
	}
	return []EntryData{*item}
}

// InterpretAsRecurring extracts a recurring definition draft from free-form
// text. Nil means the text yields no usable definition; callers treat that as
// "nothing to create".
func (e *Engine) InterpretAsRecurring(ctx context.Context, text string) *RecurringData {
	data, err := e.interpreter.InterpretRecurring(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			slog.Warn("Text interpreter failed, using rule-based parser", "error", err)
		}
		return e.ruleBasedRecurring(text)
	}
	// The backend decided the text is not recurring; the rule-based parser
	// gets no second opinion.
	return data
}

func (e *Engine) ruleBasedRecurring(text string) *RecurringData {
	if !LooksRecurring(text) {
		return nil
	}

	amount, ok := extractAmount(text)
	if !ok || amount <= 0 {
		return nil
	}

	return ParseRecurring(text, amount, extractCategory(text), extractType(text), e.timeSource.Now())
}
