package interpret

// Prompts sent to the model backends. Each one demands a strict JSON
// response in the envelope the parsers in response.go expect.

const entriesPrompt = `You are a household ledger assistant. Analyze the user's natural-language input and extract ledger entries from it.

Return ONLY valid JSON in this exact format:
{
  "items": [
    {
      "date": "YYYY-MM-DD",
      "amount": 0,
      "category": "category name",
      "description": "description",
      "type": "income" or "expense"
    }
  ]
}

Categories:
- 식비, 교통비, 쇼핑, 의료비, 기타 (for expenses)
- 급여, 부수입 (for income)

Rules:
- Amounts are whole Korean won. "5만원" means 50000, "3천원" means 3000.
- If no date is mentioned, use today's date.
- If the input contains several transactions, extract all of them.
- If no amount can be found, return an empty items array.
- Do not wrap the response in markdown code blocks.

Input:
`

const recurringPrompt = `You are a household ledger assistant. Analyze the user's natural-language input and extract a recurring item (a fixed cost or fixed income repeating daily, weekly, monthly or yearly).

Return ONLY valid JSON in this exact format:
{
  "is_recurring": true or false,
  "name": "name of the recurring item",
  "amount": 0,
  "category": "category name",
  "description": "description",
  "type": "income" or "expense",
  "repeat_type": "daily" | "weekly" | "monthly" | "yearly",
  "repeat_day": number or null,
  "start_date": "YYYY-MM-DD",
  "end_date": "YYYY-MM-DD" or null
}

Rules:
- Set is_recurring to false when the input does not describe a repeating item.
- For repeat_type "weekly", repeat_day is 0 (Sunday) through 6 (Saturday).
- For repeat_type "monthly", repeat_day is 1 through 31.
- For "daily" and "yearly", repeat_day is null.
- Amounts are whole Korean won. "10만원" means 100000.
- If no start date is mentioned, use today's date.
- Do not wrap the response in markdown code blocks.

Input:
`

const imagePrompt = `This image is a receipt or a household ledger document. Extract every transaction it contains.

Return ONLY valid JSON in this exact format:
{
  "items": [
    {
      "date": "YYYY-MM-DD",
      "amount": 0,
      "category": "category name",
      "description": "description",
      "type": "expense"
    }
  ]
}

Rules:
- Categories: 식비, 교통비, 쇼핑, 의료비, 기타.
- Amounts are whole Korean won, no decimals.
- Use the transaction or purchase date printed on the receipt; if none is visible, use today's date.
- If the image holds several line items with one total, extract the total as a single item unless the items clearly belong to different categories.
- Do not include any text before or after the JSON.
- Do not use markdown code blocks.`
