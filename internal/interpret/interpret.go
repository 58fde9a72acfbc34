package interpret

import (
	"context"
	"errors"
)

// Entry types as they appear in extracted data and on the wire.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Repeat cadences for recurring definitions.
const (
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
	RepeatYearly  = "yearly"
)

// ErrUnavailable signals that no model-backed interpreter is configured or
// that the configured backend could not serve the request. Callers recover by
// falling back to the rule-based parsers.
var ErrUnavailable = errors.New("interpreter unavailable")

// EntryData contains extracted information for one ledger entry draft
type EntryData struct {
	Date        string `json:"date"` // YYYY-MM-DD
	Amount      int    `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Type        string `json:"type"` // "income" or "expense"
}

// RecurringData contains extracted information for a recurring definition draft
type RecurringData struct {
	Name        string `json:"name"`
	Amount      int    `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Type        string `json:"type"`
	RepeatType  string `json:"repeat_type"`
	RepeatDay   *int   `json:"repeat_day,omitempty"` // weekly: 0-6, monthly: 1-31
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
}

// Interpreter defines the model-backed text interpretation capability
type Interpreter interface {
	// InterpretEntries extracts zero or more ledger entry drafts from text
	InterpretEntries(ctx context.Context, text string) ([]EntryData, error)

	// InterpretRecurring extracts a recurring definition draft from text.
	// A nil result with a nil error means the backend decided the text does
	// not describe a recurring item.
	InterpretRecurring(ctx context.Context, text string) (*RecurringData, error)

	// Close closes the interpreter and releases resources
	Close() error
}

// ImageExtractor defines the capability of extracting ledger entry drafts
// from a receipt image or PDF.
type ImageExtractor interface {
	ExtractEntries(imageData []byte, contentType string) ([]EntryData, error)
	Close() error
}

// Disabled is the Interpreter and ImageExtractor used when no backend is
// configured. Every call reports ErrUnavailable so the engine takes the
// rule-based path without call sites checking for presence.
type Disabled struct{}

func (Disabled) InterpretEntries(context.Context, string) ([]EntryData, error) {
	return nil, ErrUnavailable
}

func (Disabled) InterpretRecurring(context.Context, string) (*RecurringData, error) {
	return nil, ErrUnavailable
}

func (Disabled) ExtractEntries([]byte, string) ([]EntryData, error) {
	return nil, ErrUnavailable
}

func (Disabled) Close() error { return nil }
