package ledger

import (
	"context"
	"errors"
	"time"

	g "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hyeonwoo/gagyebu/internal/interpret"
)

type mockImageExtractor struct {
	entries []interpret.EntryData
	err     error
	called  bool
}

func (m *mockImageExtractor) ExtractEntries(data []byte, contentType string) ([]interpret.EntryData, error) {
	m.called = true
	return m.entries, m.err
}

func (m *mockImageExtractor) Close() error {
	return nil
}

type mockFileStore struct {
	files   map[string][]byte
	saveErr error
	getErr  error

	deleted []string
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{files: make(map[string][]byte)}
}

func (m *mockFileStore) Save(filename string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.files[filename] = data
	return filename, nil
}

func (m *mockFileStore) Get(path string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *mockFileStore) Delete(path string) error {
	delete(m.files, path)
	m.deleted = append(m.deleted, path)
	return nil
}

var _ = g.Describe("Service", func() {
	var (
		db        *mockDB
		extractor *mockImageExtractor
		files     *mockFileStore
		service   *Service
		ctx       context.Context
	)

	testNow := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	g.BeforeEach(func() {
		db = newMockDB()
		extractor = &mockImageExtractor{}
		files = newMockFileStore()
		timeSource := &mockTimeSource{now: testNow}
		engine := interpret.NewEngineWithDeps(interpret.Disabled{}, timeSource)
		service = NewServiceWithDeps(db, engine, extractor, files, &mockIDGenerator{}, timeSource)
		ctx = context.Background()
	})

	g.Describe("CreateEntry", func() {
		g.It("should persist a valid draft", func() {
			entry, err := service.CreateEntry(EntryDraft{
				Date:        "2024-03-01",
				Amount:      5000,
				Category:    "식비",
				Description: "커피",
				Type:        TypeExpense,
			}, "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.ID).To(Equal("id-1"))
			Expect(entry.CreatedBy).To(Equal("hyeonwoo"))
			Expect(entry.CreatedAt).To(Equal(testNow))
			Expect(db.entries).To(HaveKey("id-1"))
		})

		g.It("should reject a non-positive amount", func() {
			_, err := service.CreateEntry(EntryDraft{Amount: 0}, "hyeonwoo")
			Expect(err).To(HaveOccurred())
		})

		g.It("should fill defaults for missing fields", func() {
			entry, err := service.CreateEntry(EntryDraft{Amount: 5000}, "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Date).To(Equal("2024-03-15"))
			Expect(entry.Category).To(Equal(interpret.DefaultCategory))
			Expect(entry.Description).To(Equal(interpret.DefaultCategory))
			Expect(entry.Type).To(Equal(TypeExpense))
		})
	})

	g.Describe("CreateFromText", func() {
		g.It("should extract and persist an entry from Korean text", func() {
			entries, err := service.CreateFromText(ctx, "오늘 커피 5000원 지출했어", "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Amount).To(Equal(5000))
			Expect(entries[0].Category).To(Equal("식비"))
			Expect(entries[0].Date).To(Equal("2024-03-15"))
			Expect(db.entries).To(HaveLen(1))
		})

		g.It("should return an empty slice for unextractable text", func() {
			entries, err := service.CreateFromText(ctx, "안녕하세요", "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
			Expect(db.entries).To(BeEmpty())
		})
	})

	g.Describe("InterpretText", func() {
		g.When("the text describes a recurring item", func() {
			g.It("should create a recurring definition", func() {
				result, err := service.InterpretText(ctx, "매월 관리비 10만원 고정비 추가해줘", "hyeonwoo")
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Recurring).NotTo(BeNil())
				Expect(result.Recurring.Amount).To(Equal(100000))
				Expect(result.Recurring.RepeatType).To(Equal(RepeatMonthly))
				Expect(result.Recurring.IsActive).To(BeTrue())
				Expect(result.Entries).To(BeEmpty())
				Expect(result.Message).To(ContainSubstring("고정비"))
				Expect(result.Message).To(ContainSubstring("추가되었습니다"))
			})
		})

		g.When("the text describes a one-off entry", func() {
			g.It("should create a ledger entry", func() {
				result, err := service.InterpretText(ctx, "오늘 커피 5000원 지출", "hyeonwoo")
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Recurring).To(BeNil())
				Expect(result.Entries).To(HaveLen(1))
				Expect(result.Message).To(Equal("1개의 항목이 추가되었습니다."))
			})
		})

		g.When("nothing can be extracted", func() {
			g.It("should reply with guidance and create nothing", func() {
				result, err := service.InterpretText(ctx, "안녕하세요", "hyeonwoo")
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Entries).To(BeEmpty())
				Expect(result.Recurring).To(BeNil())
				Expect(result.Message).To(ContainSubstring("금액을 찾지 못했습니다"))
				Expect(db.entries).To(BeEmpty())
				Expect(db.recurring).To(BeEmpty())
			})
		})

		g.When("a recurring keyword appears without an amount", func() {
			g.It("should fall through to the entry path and then guidance", func() {
				result, err := service.InterpretText(ctx, "매월 관리비 고정비", "hyeonwoo")
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Recurring).To(BeNil())
				Expect(result.Entries).To(BeEmpty())
				Expect(result.Message).To(ContainSubstring("금액을 찾지 못했습니다"))
			})
		})
	})

	g.Describe("CreateFromImage", func() {
		g.BeforeEach(func() {
			extractor.entries = []interpret.EntryData{
				{Date: "2024-03-01", Amount: 5000, Category: "식비", Description: "커피", Type: interpret.TypeExpense},
			}
		})

		g.It("should store the image and persist extracted entries", func() {
			entries, err := service.CreateFromImage("receipt.jpg", []byte("image-bytes"), "image/jpeg", "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ImageURL).To(Equal("/api/images/id-1_receipt.jpg"))
			Expect(files.files).To(HaveKey("id-1_receipt.jpg"))
		})

		g.It("should sanitize awkward filenames", func() {
			_, err := service.CreateFromImage("사진 (1)!!.jpg", []byte("image-bytes"), "image/jpeg", "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(files.files).To(HaveKey("id-1_1.jpg"))
		})

		g.When("the extraction fails", func() {
			g.BeforeEach(func() {
				extractor.entries = nil
				extractor.err = errors.New("model timeout")
			})

			g.It("should delete the stored file and return the error", func() {
				_, err := service.CreateFromImage("receipt.jpg", []byte("image-bytes"), "image/jpeg", "hyeonwoo")
				Expect(err).To(HaveOccurred())
				Expect(files.files).To(BeEmpty())
				Expect(files.deleted).To(ContainElement("id-1_receipt.jpg"))
			})
		})

		g.When("storing the file fails", func() {
			g.BeforeEach(func() {
				files.saveErr = errors.New("disk full")
			})

			g.It("should not call the extractor", func() {
				_, err := service.CreateFromImage("receipt.jpg", []byte("image-bytes"), "image/jpeg", "hyeonwoo")
				Expect(err).To(HaveOccurred())
				Expect(extractor.called).To(BeFalse())
			})
		})
	})

	g.Describe("GetImage", func() {
		g.It("should report the content type by extension", func() {
			files.files["receipt.png"] = []byte("png-bytes")
			data, contentType, err := service.GetImage("receipt.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("png-bytes")))
			Expect(contentType).To(Equal("image/png"))
		})

		g.It("should default unknown extensions to octet-stream", func() {
			files.files["receipt.bin"] = []byte("bytes")
			_, contentType, err := service.GetImage("receipt.bin")
			Expect(err).NotTo(HaveOccurred())
			Expect(contentType).To(Equal("application/octet-stream"))
		})
	})

	g.Describe("UpdateEntry", func() {
		g.BeforeEach(func() {
			db.entries["entry-1"] = &Entry{
				ID:        "entry-1",
				Date:      "2024-03-01",
				Amount:    5000,
				Category:  "식비",
				Type:      TypeExpense,
				CreatedBy: "hyeonwoo",
			}
		})

		g.It("should apply only the supplied fields", func() {
			amount := 8000
			entry, err := service.UpdateEntry("entry-1", EntryUpdate{Amount: &amount}, "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Amount).To(Equal(8000))
			Expect(entry.Category).To(Equal("식비"))
			Expect(entry.UpdatedAt).To(Equal(testNow))
		})

		g.It("should hide the entry from other users", func() {
			amount := 8000
			_, err := service.UpdateEntry("entry-1", EntryUpdate{Amount: &amount}, "someone-else")
			Expect(err).To(MatchError(ErrNotFound))
		})

		g.It("should reject a non-positive amount", func() {
			amount := 0
			_, err := service.UpdateEntry("entry-1", EntryUpdate{Amount: &amount}, "hyeonwoo")
			Expect(err).To(HaveOccurred())
		})

		g.It("should reject a malformed date", func() {
			date := "01/03/2024"
			_, err := service.UpdateEntry("entry-1", EntryUpdate{Date: &date}, "hyeonwoo")
			Expect(err).To(HaveOccurred())
		})
	})

	g.Describe("DeleteEntry", func() {
		g.BeforeEach(func() {
			db.entries["entry-1"] = &Entry{ID: "entry-1", CreatedBy: "hyeonwoo"}
		})

		g.It("should delete the owner's entry", func() {
			Expect(service.DeleteEntry("entry-1", "hyeonwoo")).To(Succeed())
			Expect(db.entries).To(BeEmpty())
		})

		g.It("should hide the entry from other users", func() {
			Expect(service.DeleteEntry("entry-1", "someone-else")).To(MatchError(ErrNotFound))
			Expect(db.entries).To(HaveKey("entry-1"))
		})
	})

	g.Describe("ListEntriesBetween", func() {
		g.BeforeEach(func() {
			db.entries["e1"] = &Entry{ID: "e1", Date: "2024-02-28"}
			db.entries["e2"] = &Entry{ID: "e2", Date: "2024-03-10"}
			db.entries["e3"] = &Entry{ID: "e3", Date: "2024-04-01"}
		})

		g.It("should keep entries inside the inclusive range", func() {
			entries, err := service.ListEntriesBetween("2024-03-01", "2024-03-31")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ID).To(Equal("e2"))
		})

		g.It("should treat empty bounds as open", func() {
			entries, err := service.ListEntriesBetween("", "2024-03-31")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
		})
	})

	g.Describe("CreateRecurring", func() {
		g.It("should persist a valid draft as active", func() {
			def, err := service.CreateRecurring(RecurringDraft{
				Name:       "월세",
				Amount:     500000,
				Category:   "주거비",
				Type:       TypeExpense,
				RepeatType: RepeatMonthly,
				RepeatDay:  intPtr(25),
				StartDate:  "2024-01-01",
			}, "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(def.IsActive).To(BeTrue())
			Expect(def.LastProcessedDate).To(BeEmpty())
			Expect(db.recurring).To(HaveKey(def.ID))
		})

		g.It("should default an unknown cadence to monthly", func() {
			def, err := service.CreateRecurring(RecurringDraft{Name: "구독", Amount: 10000}, "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(def.RepeatType).To(Equal(RepeatMonthly))
			Expect(def.StartDate).To(Equal("2024-03-15"))
		})

		g.It("should clear the repeat day for daily and yearly cadences", func() {
			def, err := service.CreateRecurring(RecurringDraft{
				Name: "커피", Amount: 5000, RepeatType: RepeatDaily, RepeatDay: intPtr(3),
			}, "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(def.RepeatDay).To(BeNil())
		})

		g.It("should validate the weekly repeat day range", func() {
			_, err := service.CreateRecurring(RecurringDraft{
				Name: "용돈", Amount: 10000, RepeatType: RepeatWeekly, RepeatDay: intPtr(7),
			}, "hyeonwoo")
			Expect(err).To(HaveOccurred())
		})

		g.It("should validate the monthly repeat day range", func() {
			_, err := service.CreateRecurring(RecurringDraft{
				Name: "월세", Amount: 500000, RepeatType: RepeatMonthly, RepeatDay: intPtr(32),
			}, "hyeonwoo")
			Expect(err).To(HaveOccurred())
		})

		g.It("should reject a malformed end date", func() {
			_, err := service.CreateRecurring(RecurringDraft{
				Name: "구독", Amount: 10000, EndDate: "next year",
			}, "hyeonwoo")
			Expect(err).To(HaveOccurred())
		})
	})

	g.Describe("UpdateRecurring", func() {
		g.BeforeEach(func() {
			db.recurring["rec-1"] = &RecurringDefinition{
				ID:                "rec-1",
				Name:              "월세",
				Amount:            500000,
				RepeatType:        RepeatMonthly,
				StartDate:         "2024-01-01",
				LastProcessedDate: "2024-02-01",
				IsActive:          true,
				CreatedBy:         "hyeonwoo",
			}
		})

		g.It("should apply only the supplied fields", func() {
			amount := 550000
			def, err := service.UpdateRecurring("rec-1", RecurringUpdate{Amount: &amount}, "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(def.Amount).To(Equal(550000))
			Expect(def.Name).To(Equal("월세"))
		})

		g.It("should never touch the last-processed marker", func() {
			active := false
			def, err := service.UpdateRecurring("rec-1", RecurringUpdate{IsActive: &active}, "hyeonwoo")
			Expect(err).NotTo(HaveOccurred())
			Expect(def.IsActive).To(BeFalse())
			Expect(def.LastProcessedDate).To(Equal("2024-02-01"))
		})

		g.It("should hide the definition from other users", func() {
			amount := 550000
			_, err := service.UpdateRecurring("rec-1", RecurringUpdate{Amount: &amount}, "someone-else")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	g.Describe("DeleteRecurring", func() {
		g.BeforeEach(func() {
			db.recurring["rec-1"] = &RecurringDefinition{ID: "rec-1", CreatedBy: "hyeonwoo"}
		})

		g.It("should delete the owner's definition", func() {
			Expect(service.DeleteRecurring("rec-1", "hyeonwoo")).To(Succeed())
			Expect(db.recurring).To(BeEmpty())
		})

		g.It("should hide the definition from other users", func() {
			Expect(service.DeleteRecurring("rec-1", "someone-else")).To(MatchError(ErrNotFound))
		})
	})

	g.Describe("Statistics", func() {
		g.It("should aggregate the stored entries", func() {
			db.entries["e1"] = &Entry{ID: "e1", Amount: 3000000, Category: "급여", Type: TypeIncome}
			db.entries["e2"] = &Entry{ID: "e2", Amount: 500000, Category: "주거비", Type: TypeExpense}

			stats, err := service.Statistics()
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalIncome).To(Equal(3000000))
			Expect(stats.TotalExpense).To(Equal(500000))
			Expect(stats.Balance).To(Equal(2500000))
			Expect(stats.CategoryBreakdown).To(HaveLen(2))
		})
	})
})
