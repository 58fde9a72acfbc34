package interpret

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DefaultCategory is used when no category keyword matches.
const DefaultCategory = "기타"

var (
	amountPattern    = regexp.MustCompile(`(\d+(?:,\d+)?)\s*(?:만원|천원|원)?`)
	amountStrip      = regexp.MustCompile(`\d+(?:,\d+)?\s*(?:만원|천원|원)?`)
	isoDatePattern   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	slashDatePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
	dateStrip        = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}`)
	dateWordStrip    = regexp.MustCompile(`(?i)오늘|어제|today|yesterday`)
	typeWordStrip    = regexp.MustCompile(`지출|수입|입금`)
	monthDayPattern  = regexp.MustCompile(`(\d{1,2})\s*일`)
	endDatePattern   = regexp.MustCompile(`(?:~|부터)\s*(\d{4}-\d{2}-\d{2})|(\d{4}-\d{2}-\d{2})\s*까지`)
	recurringStrip   = regexp.MustCompile(`고정비|매월|매주|매일|매년|반복|정기|구독`)
)

// categoryRules maps each category to the keywords that select it. Order
// matters: the first category whose keyword appears in the text wins.
var categoryRules = []struct {
	name     string
	keywords []string
}{
	{"식비", []string{"커피", "음식", "식사", "카페", "맛집", "식당", "치킨", "피자", "햄버거"}},
	{"교통비", []string{"지하철", "버스", "택시", "기차", "교통", "주차"}},
	{"쇼핑", []string{"쇼핑", "옷", "신발", "가방", "온라인"}},
	{"의료비", []string{"병원", "약", "의료", "치과"}},
	{"급여", []string{"급여", "월급", "연봉"}},
	{"부수입", []string{"부수입", "용돈", "선물"}},
}

// recurringKeywords mark a text as describing a recurring item rather than a
// one-off entry.
var recurringKeywords = []string{
	"고정비", "매월", "매주", "매일", "매년", "반복", "정기", "구독",
	"월세", "관리비", "통신비", "보험",
}

// extractAmount finds the first numeric token and applies the 만원/천원
// magnitude suffixes. Returns false when the text holds no numeric token.
func extractAmount(text string) (int, bool) {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	amount, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}

	if strings.Contains(text, "만원") {
		amount *= 10000
	} else if strings.Contains(text, "천원") {
		amount *= 1000
	}

	return amount, true
}

// extractDate resolves a date mention to YYYY-MM-DD. Checks run in order:
// today words, yesterday words, an explicit YYYY-MM-DD, an M/D in the current
// year. No match defaults to the supplied current date.
func extractDate(text string, now time.Time) string {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "오늘") || strings.Contains(lower, "today") {
		return now.Format(dateLayout)
	}
	if strings.Contains(lower, "어제") || strings.Contains(lower, "yesterday") {
		return now.AddDate(0, 0, -1).Format(dateLayout)
	}

	if m := isoDatePattern.FindString(text); m != "" {
		return m
	}
	if m := slashDatePattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%04d-%02d-%02d", now.Year(), month, day)
	}

	return now.Format(dateLayout)
}

// extractType classifies the text as income or expense. Expense is the default.
func extractType(text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "수입") ||
		strings.Contains(lower, "입금") ||
		strings.Contains(lower, "급여") ||
		strings.Contains(lower, "income") {
		return TypeIncome
	}
	return TypeExpense
}

// extractCategory returns the first category whose keyword list matches,
// in categoryRules declaration order.
func extractCategory(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.name
			}
		}
	}
	return DefaultCategory
}

// extractDescription strips the amount, date and type tokens from the text.
// An empty remainder falls back to the category name.
func extractDescription(text, category string) string {
	description := amountStrip.ReplaceAllString(text, "")
	description = dateWordStrip.ReplaceAllString(description, "")
	description = dateStrip.ReplaceAllString(description, "")
	description = typeWordStrip.ReplaceAllString(description, "")
	description = strings.TrimSpace(description)

	if description == "" {
		return category
	}
	return description
}

// ParseEntry extracts a single ledger entry draft from free-form text using
// the rule-based extractors. It returns false when no positive amount can be
// found; every other field has a safe default.
func ParseEntry(text string, now time.Time) (*EntryData, bool) {
	amount, ok := extractAmount(text)
	if !ok || amount <= 0 {
		return nil, false
	}

	category := extractCategory(text)
	return &EntryData{
		Date:        extractDate(text, now),
		Amount:      amount,
		Category:    category,
		Description: extractDescription(text, category),
		Type:        extractType(text),
	}, true
}

// LooksRecurring reports whether the text contains a recurrence-indicating
// keyword. Callers use it to route between the one-off and recurring paths.
func LooksRecurring(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range recurringKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// extractRepeatType classifies the cadence. Monthly is the fallback, not a
// failure.
func extractRepeatType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "매일") || strings.Contains(lower, "일일") || strings.Contains(lower, "daily"):
		return RepeatDaily
	case strings.Contains(lower, "매주") || strings.Contains(lower, "주간") || strings.Contains(lower, "weekly"):
		return RepeatWeekly
	case strings.Contains(lower, "매년") || strings.Contains(lower, "연간") || strings.Contains(lower, "yearly"):
		return RepeatYearly
	default:
		return RepeatMonthly
	}
}

// weekdayNames maps Korean weekday names to 0 (Sunday) through 6 (Saturday).
var weekdayNames = []struct {
	name string
	day  int
}{
	{"일요일", 0},
	{"월요일", 1},
	{"화요일", 2},
	{"수요일", 3},
	{"목요일", 4},
	{"금요일", 5},
	{"토요일", 6},
}

// extractRepeatDay finds an explicit repeat day for weekly (weekday name) and
// monthly ("<N>일") cadences. Daily and yearly never carry one.
func extractRepeatDay(text, repeatType string) *int {
	switch repeatType {
	case RepeatMonthly:
		if m := monthDayPattern.FindStringSubmatch(text); m != nil {
			day, err := strconv.Atoi(m[1])
			if err == nil && day >= 1 && day <= 31 {
				return &day
			}
		}
	case RepeatWeekly:
		for _, w := range weekdayNames {
			if strings.Contains(text, w.name) {
				day := w.day
				return &day
			}
		}
	}
	return nil
}

func extractStartDate(text string, now time.Time) string {
	if m := isoDatePattern.FindString(text); m != "" {
		return m
	}
	return now.Format(dateLayout)
}

// extractEndDate finds a date tied to an until marker ("~" prefix or "까지"
// suffix). Empty means no end date.
func extractEndDate(text string) string {
	m := endDatePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// extractName strips recurrence keywords and amount tokens; the remainder is
// the definition name.
func extractName(text string) string {
	name := recurringStrip.ReplaceAllString(text, "")
	name = amountStrip.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// ParseRecurring extracts a recurring definition draft from free-form text.
// Amount, category and type come from the caller, which is expected to run
// the entry extractors first. A non-positive amount yields nil.
func ParseRecurring(text string, amount int, category, entryType string, now time.Time) *RecurringData {
	if amount <= 0 {
		return nil
	}

	repeatType := extractRepeatType(text)
	name := extractName(text)
	if name == "" {
		name = category
	}

	return &RecurringData{
		Name:        name,
		Amount:      amount,
		Category:    category,
		Description: text,
		Type:        entryType,
		RepeatType:  repeatType,
		RepeatDay:   extractRepeatDay(text, repeatType),
		StartDate:   extractStartDate(text, now),
		EndDate:     extractEndDate(text),
	}
}
