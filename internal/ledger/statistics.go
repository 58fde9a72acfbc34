package ledger

import "sort"

// CalculateStatistics aggregates a snapshot of ledger entries: income and
// expense totals, their balance, and each category's share of the combined
// volume. An empty snapshot yields all zeros and an empty breakdown.
func CalculateStatistics(entries []*Entry) *Statistics {
	stats := &Statistics{
		CategoryBreakdown: []CategoryBreakdown{},
	}

	categoryTotals := make(map[string]int)
	for _, entry := range entries {
		switch entry.Type {
		case TypeIncome:
			stats.TotalIncome += entry.Amount
		case TypeExpense:
			stats.TotalExpense += entry.Amount
		}
		categoryTotals[entry.Category] += entry.Amount
	}
	stats.Balance = stats.TotalIncome - stats.TotalExpense

	combined := stats.TotalIncome + stats.TotalExpense
	for category, amount := range categoryTotals {
		percentage := 0.0
		if combined > 0 {
			percentage = float64(amount) / float64(combined) * 100
		}
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, CategoryBreakdown{
			Category:   category,
			Amount:     amount,
			Percentage: percentage,
		})
	}

	// Largest category first; name breaks ties so output is deterministic
	sort.Slice(stats.CategoryBreakdown, func(i, j int) bool {
		a, b := stats.CategoryBreakdown[i], stats.CategoryBreakdown[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.Category < b.Category
	})

	return stats
}
