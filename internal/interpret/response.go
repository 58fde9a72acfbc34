package interpret

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// flexInt unmarshals a JSON number or numeric string into an int. Models
// occasionally quote amounts or emit them with a fractional part.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return fmt.Errorf("parsing amount %q: %w", s, err)
	}
	*f = flexInt(v)
	return nil
}

type entryPayload struct {
	Date        string  `json:"date"`
	Amount      flexInt `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
}

type entriesEnvelope struct {
	Items []entryPayload `json:"items"`
}

type recurringEnvelope struct {
	IsRecurring bool    `json:"is_recurring"`
	Name        string  `json:"name"`
	Amount      flexInt `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	RepeatType  string  `json:"repeat_type"`
	RepeatDay   *int    `json:"repeat_day"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
}

// extractJSON trims markdown code fences and surrounding prose, leaving the
// first JSON object in the response.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end < start {
		return "", fmt.Errorf("invalid JSON object in response")
	}

	return text[start : end+1], nil
}

// normalizeDate coerces a model-reported date to YYYY-MM-DD, trying a few
// common formats before defaulting to the supplied current date.
func normalizeDate(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Format(dateLayout)
	}

	if d, err := time.Parse(dateLayout, s); err == nil {
		return d.Format(dateLayout)
	}
	for _, format := range []string{"2006/01/02", "01/02/2006", "02-01-2006"} {
		if d, err := time.Parse(format, s); err == nil {
			return d.Format(dateLayout)
		}
	}

	return now.Format(dateLayout)
}

func normalizeEntry(p entryPayload, now time.Time) EntryData {
	category := strings.TrimSpace(p.Category)
	if category == "" {
		category = DefaultCategory
	}
	entryType := strings.TrimSpace(p.Type)
	if entryType != TypeIncome {
		entryType = TypeExpense
	}
	description := strings.TrimSpace(p.Description)
	if description == "" {
		description = category
	}

	return EntryData{
		Date:        normalizeDate(p.Date, now),
		Amount:      int(p.Amount),
		Category:    category,
		Description: description,
		Type:        entryType,
	}
}

// parseEntriesJSON parses a model response carrying an {"items": [...]}
// envelope. Items without a positive amount are dropped.
func parseEntriesJSON(text string, now time.Time) ([]EntryData, error) {
	body, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var env entriesEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, fmt.Errorf("unmarshaling items: %w", err)
	}

	items := make([]EntryData, 0, len(env.Items))
	for _, p := range env.Items {
		entry := normalizeEntry(p, now)
		if entry.Amount > 0 {
			items = append(items, entry)
		}
	}
	return items, nil
}

// parseRecurringJSON parses a model response describing a recurring
// definition. A nil result with nil error means the model marked the text as
// not recurring.
func parseRecurringJSON(text string, now time.Time) (*RecurringData, error) {
	body, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var env recurringEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, fmt.Errorf("unmarshaling recurring definition: %w", err)
	}

	if !env.IsRecurring {
		return nil, nil
	}
	if env.Amount <= 0 || strings.TrimSpace(env.Name) == "" {
		return nil, nil
	}

	category := strings.TrimSpace(env.Category)
	if category == "" {
		category = DefaultCategory
	}
	entryType := strings.TrimSpace(env.Type)
	if entryType != TypeIncome {
		entryType = TypeExpense
	}
	repeatType := strings.TrimSpace(env.RepeatType)
	switch repeatType {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
	default:
		repeatType = RepeatMonthly
	}

	// An out-of-range repeat day is dropped, not rejected, like every other
	// field the model gets wrong
	repeatDay := env.RepeatDay
	if repeatDay != nil {
		switch repeatType {
		case RepeatWeekly:
			if *repeatDay < 0 || *repeatDay > 6 {
				repeatDay = nil
			}
		case RepeatMonthly:
			if *repeatDay < 1 || *repeatDay > 31 {
				repeatDay = nil
			}
		default:
			repeatDay = nil
		}
	}

	endDate := ""
	if d := strings.TrimSpace(env.EndDate); d != "" && d != "null" {
		endDate = normalizeDate(d, now)
	}

	return &RecurringData{
		Name:        strings.TrimSpace(env.Name),
		Amount:      int(env.Amount),
		Category:    category,
		Description: strings.TrimSpace(env.Description),
		Type:        entryType,
		RepeatType:  repeatType,
		RepeatDay:   repeatDay,
		StartDate:   normalizeDate(env.StartDate, now),
		EndDate:     endDate,
	}, nil
}
