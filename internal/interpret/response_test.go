package interpret

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("extractJSON", func() {
	It("should return a bare JSON object unchanged", func() {
		body, err := extractJSON(`{"items": []}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(Equal(`{"items": []}`))
	})

	It("should strip markdown code fences", func() {
		body, err := extractJSON("```json\n{\"items\": []}\n```")
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(Equal(`{"items": []}`))
	})

	It("should drop surrounding prose", func() {
		body, err := extractJSON("Here you go:\n{\"items\": []}\nHope that helps!")
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(Equal(`{"items": []}`))
	})

	It("should error when no object is present", func() {
		_, err := extractJSON("I could not find any transactions.")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("normalizeDate", func() {
	It("should keep a canonical date", func() {
		Expect(normalizeDate("2024-03-01", fixedNow)).To(Equal("2024-03-01"))
	})

	It("should convert slash-separated dates", func() {
		Expect(normalizeDate("2024/03/01", fixedNow)).To(Equal("2024-03-01"))
	})

	It("should default an empty date to today", func() {
		Expect(normalizeDate("", fixedNow)).To(Equal("2024-03-15"))
	})

	It("should default an unparseable date to today", func() {
		Expect(normalizeDate("three days ago", fixedNow)).To(Equal("2024-03-15"))
	})
})

var _ = Describe("parseEntriesJSON", func() {
	When("the response is a clean envelope", func() {
		It("should decode every item", func() {
			items, err := parseEntriesJSON(`{"items": [
				{"date": "2024-03-01", "amount": 5000, "category": "식비", "description": "커피", "type": "expense"},
				{"date": "2024-03-02", "amount": 3000000, "category": "급여", "description": "월급", "type": "income"}
			]}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
			Expect(items[0].Amount).To(Equal(5000))
			Expect(items[1].Type).To(Equal(TypeIncome))
		})
	})

	When("amounts arrive as quoted strings", func() {
		It("should still decode them", func() {
			items, err := parseEntriesJSON(`{"items": [{"date": "2024-03-01", "amount": "12,000", "category": "식비", "description": "점심", "type": "expense"}]}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Amount).To(Equal(12000))
		})
	})

	When("fields are missing", func() {
		It("should apply defaults", func() {
			items, err := parseEntriesJSON(`{"items": [{"amount": 5000}]}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Date).To(Equal("2024-03-15"))
			Expect(items[0].Category).To(Equal(DefaultCategory))
			Expect(items[0].Description).To(Equal(DefaultCategory))
			Expect(items[0].Type).To(Equal(TypeExpense))
		})
	})

	When("an item has no positive amount", func() {
		It("should drop the item", func() {
			items, err := parseEntriesJSON(`{"items": [{"amount": 0, "description": "잡담"}, {"amount": 5000, "description": "커피"}]}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal("커피"))
		})
	})

	When("the response is fenced", func() {
		It("should decode through the fences", func() {
			items, err := parseEntriesJSON("```json\n{\"items\": [{\"amount\": 5000, \"description\": \"커피\"}]}\n```", fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
		})
	})
})

var _ = Describe("parseRecurringJSON", func() {
	When("the model marks the text as recurring", func() {
		It("should build a definition draft", func() {
			data, err := parseRecurringJSON(`{"is_recurring": true, "name": "월세", "amount": 500000, "category": "기타", "type": "expense", "repeat_type": "monthly", "repeat_day": 25, "start_date": "2024-03-01"}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).NotTo(BeNil())
			Expect(data.Name).To(Equal("월세"))
			Expect(data.Amount).To(Equal(500000))
			Expect(data.RepeatType).To(Equal(RepeatMonthly))
			Expect(data.RepeatDay).To(HaveValue(Equal(25)))
			Expect(data.StartDate).To(Equal("2024-03-01"))
			Expect(data.EndDate).To(BeEmpty())
		})
	})

	When("the model marks the text as not recurring", func() {
		It("should return nil without error", func() {
			data, err := parseRecurringJSON(`{"is_recurring": false}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(BeNil())
		})
	})

	When("the recurring payload lacks an amount or name", func() {
		It("should return nil without error", func() {
			data, err := parseRecurringJSON(`{"is_recurring": true, "name": "", "amount": 500000}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(BeNil())

			data, err = parseRecurringJSON(`{"is_recurring": true, "name": "월세", "amount": 0}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(BeNil())
		})
	})

	When("the repeat day is out of range for the cadence", func() {
		It("should drop a weekly day outside 0-6", func() {
			data, err := parseRecurringJSON(`{"is_recurring": true, "name": "용돈", "amount": 10000, "repeat_type": "weekly", "repeat_day": 7}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.RepeatDay).To(BeNil())
		})

		It("should drop a monthly day outside 1-31", func() {
			data, err := parseRecurringJSON(`{"is_recurring": true, "name": "월세", "amount": 500000, "repeat_type": "monthly", "repeat_day": 32}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.RepeatDay).To(BeNil())
		})

		It("should keep an in-range day", func() {
			data, err := parseRecurringJSON(`{"is_recurring": true, "name": "용돈", "amount": 10000, "repeat_type": "weekly", "repeat_day": 0}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.RepeatDay).To(HaveValue(Equal(0)))
		})

		It("should drop the day entirely for daily and yearly cadences", func() {
			data, err := parseRecurringJSON(`{"is_recurring": true, "name": "커피", "amount": 5000, "repeat_type": "daily", "repeat_day": 3}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.RepeatDay).To(BeNil())
		})
	})

	When("the cadence is unknown", func() {
		It("should fall back to monthly", func() {
			data, err := parseRecurringJSON(`{"is_recurring": true, "name": "구독", "amount": 10000, "repeat_type": "fortnightly"}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.RepeatType).To(Equal(RepeatMonthly))
		})
	})

	When("the start date is missing", func() {
		It("should default it to today", func() {
			data, err := parseRecurringJSON(`{"is_recurring": true, "name": "구독", "amount": 10000}`, fixedNow)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.StartDate).To(Equal("2024-03-15"))
		})
	})
})
