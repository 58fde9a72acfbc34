package ledger

import "time"

// DateLayout is the canonical calendar-date form used on every model field
// and API boundary. No time-of-day, no timezone.
const DateLayout = "2006-01-02"

// ParseDate parses a canonical YYYY-MM-DD date string
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// EntryType distinguishes income from expense entries
type EntryType string

const (
	TypeIncome  EntryType = "income"
	TypeExpense EntryType = "expense"
)

// RepeatType is the cadence of a recurring definition
type RepeatType string

const (
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

// Entry represents one realized income or expense record on a specific date
type Entry struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Amount      int       `json:"amount"` // Whole won, always positive
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Type        EntryType `json:"type"`
	ImageURL    string    `json:"image_url,omitempty"` // Attached receipt image, if any
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecurringDefinition is a rule template that periodically produces entries.
// The scheduler mutates LastProcessedDate only; every other field belongs to
// the owning user.
type RecurringDefinition struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Amount            int        `json:"amount"`
	Category          string     `json:"category"`
	Description       string     `json:"description"`
	Type              EntryType  `json:"type"`
	RepeatType        RepeatType `json:"repeat_type"`
	RepeatDay         *int       `json:"repeat_day,omitempty"` // weekly: 0-6 (Sunday=0), monthly: 1-31
	StartDate         string     `json:"start_date"`
	EndDate           string     `json:"end_date,omitempty"` // Inclusive
	LastProcessedDate string     `json:"last_processed_date,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedBy         string     `json:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CategoryBreakdown is one category's share of the combined ledger volume
type CategoryBreakdown struct {
	Category   string  `json:"category"`
	Amount     int     `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Statistics aggregates a snapshot of ledger entries
type Statistics struct {
	TotalIncome       int                 `json:"total_income"`
	TotalExpense      int                 `json:"total_expense"`
	Balance           int                 `json:"balance"`
	CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
}
