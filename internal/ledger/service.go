package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyeonwoo/gagyebu/internal/interpret"
)

// IDGenerator generates unique IDs for entries and recurring definitions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// EntryDraft carries the fields a caller provides when creating an entry
type EntryDraft struct {
	Date        string    `json:"date"`
	Amount      int       `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Type        EntryType `json:"type"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// EntryUpdate carries an owner's partial update of an entry
type EntryUpdate struct {
	Date        *string    `json:"date,omitempty"`
	Amount      *int       `json:"amount,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
	Type        *EntryType `json:"type,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
}

// RecurringDraft carries the fields a caller provides when creating a
// recurring definition
type RecurringDraft struct {
	Name        string     `json:"name"`
	Amount      int        `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Type        EntryType  `json:"type"`
	RepeatType  RepeatType `json:"repeat_type"`
	RepeatDay   *int       `json:"repeat_day,omitempty"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date,omitempty"`
}

// RecurringUpdate carries an owner's partial update of a recurring definition
type RecurringUpdate struct {
	Name        *string     `json:"name,omitempty"`
	Amount      *int        `json:"amount,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Description *string     `json:"description,omitempty"`
	Type        *EntryType  `json:"type,omitempty"`
	RepeatType  *RepeatType `json:"repeat_type,omitempty"`
	RepeatDay   *int        `json:"repeat_day,omitempty"`
	StartDate   *string     `json:"start_date,omitempty"`
	EndDate     *string     `json:"end_date,omitempty"`
	IsActive    *bool       `json:"is_active,omitempty"`
}

// InterpretResult is what a free-form text turns into: persisted entries, a
// persisted recurring definition, or neither, plus a human-readable message.
type InterpretResult struct {
	Entries   []*Entry             `json:"entries,omitempty"`
	Recurring *RecurringDefinition `json:"recurring,omitempty"`
	Message   string               `json:"message"`
}

// Service handles ledger operations
type Service struct {
	db          DB
	engine      *interpret.Engine
	images      interpret.ImageExtractor
	files       FileStore
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, engine *interpret.Engine, images interpret.ImageExtractor, files FileStore) *Service {
	return NewServiceWithDeps(db, engine, images, files, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, engine *interpret.Engine, images interpret.ImageExtractor, files FileStore, idGen IDGenerator, timeSource TimeSource) *Service {
	return &Service{
		db:          db,
		engine:      engine,
		images:      images,
		files:       files,
		idGenerator: idGen,
		timeSource:  timeSource,
	}
}

// normalizeDraft fills the safe defaults for an entry draft
func (s *Service) normalizeDraft(draft *EntryDraft) {
	if _, err := ParseDate(draft.Date); err != nil {
		draft.Date = s.timeSource.Now().Format(DateLayout)
	}
	if strings.TrimSpace(draft.Category) == "" {
		draft.Category = interpret.DefaultCategory
	}
	if draft.Type != TypeIncome {
		draft.Type = TypeExpense
	}
	if strings.TrimSpace(draft.Description) == "" {
		draft.Description = draft.Category
	}
}

// CreateEntry persists a manually entered ledger entry
func (s *Service) CreateEntry(draft EntryDraft, userID string) (*Entry, error) {
	if draft.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	s.normalizeDraft(&draft)

	now := s.timeSource.Now()
	entry := &Entry{
		ID:          s.idGenerator.Generate(),
		Date:        draft.Date,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Description: draft.Description,
		Type:        draft.Type,
		ImageURL:    draft.ImageURL,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveEntry(entry); err != nil {
		return nil, fmt.Errorf("saving entry: %w", err)
	}
	return entry, nil
}

// CreateFromText extracts ledger entries from free-form text and persists
// them. An unextractable text yields an empty slice, not an error.
func (s *Service) CreateFromText(ctx context.Context, text, userID string) ([]*Entry, error) {
	drafts := s.engine.InterpretAsEntries(ctx, text)

	entries := make([]*Entry, 0, len(drafts))
	for _, d := range drafts {
		entry, err := s.CreateEntry(EntryDraft{
			Date:        d.Date,
			Amount:      d.Amount,
			Category:    d.Category,
			Description: d.Description,
			Type:        EntryType(d.Type),
		}, userID)
		if err != nil {
			return entries, fmt.Errorf("saving extracted entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CreateRecurringFromText extracts a recurring definition from free-form
// text and persists it. Nil with a nil error means nothing to create.
func (s *Service) CreateRecurringFromText(ctx context.Context, text, userID string) (*RecurringDefinition, error) {
	data := s.engine.InterpretAsRecurring(ctx, text)
	if data == nil {
		return nil, nil
	}

	return s.CreateRecurring(RecurringDraft{
		Name:        data.Name,
		Amount:      data.Amount,
		Category:    data.Category,
		Description: data.Description,
		Type:        EntryType(data.Type),
		RepeatType:  RepeatType(data.RepeatType),
		RepeatDay:   data.RepeatDay,
		StartDate:   data.StartDate,
		EndDate:     data.EndDate,
	}, userID)
}

// InterpretText routes a free-form text between the recurring and one-off
// paths by keyword presence, persists the result, and builds the reply
// message shown to the user.
func (s *Service) InterpretText(ctx context.Context, text, userID string) (*InterpretResult, error) {
	if interpret.LooksRecurring(text) {
		def, err := s.CreateRecurringFromText(ctx, text, userID)
		if err != nil {
			return nil, err
		}
		if def != nil {
			return &InterpretResult{
				Recurring: def,
				Message:   fmt.Sprintf("고정비 \"%s\"가 추가되었습니다.", def.Name),
			}, nil
		}
	}

	entries, err := s.CreateFromText(ctx, text, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return &InterpretResult{
			Entries: entries,
			Message: fmt.Sprintf("%d개의 항목이 추가되었습니다.", len(entries)),
		}, nil
	}

	return &InterpretResult{
		Message: "금액을 찾지 못했습니다. 예: \"오늘 커피 5000원 지출\" 또는 \"매월 관리비 10만원 고정비 추가\"",
	}, nil
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length, keeping phone-generated names manageable
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`).ReplaceAllString(base, "")
	base = regexp.MustCompile(`\s+`).ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// CreateFromImage stores an uploaded receipt image, extracts ledger entries
// from it, and persists them with the image reference attached. A failed
// extraction cleans up the stored file.
func (s *Service) CreateFromImage(filename string, data []byte, contentType, userID string) ([]*Entry, error) {
	name := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename))
	savedPath, err := s.files.Save(name, data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	drafts, err := s.images.ExtractEntries(data, contentType)
	if err != nil {
		slog.Error("Failed to extract entries from image",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.files.Delete(savedPath)
		return nil, fmt.Errorf("extracting entries from image: %w", err)
	}

	imageURL := "/api/images/" + savedPath
	entries := make([]*Entry, 0, len(drafts))
	for _, d := range drafts {
		entry, err := s.CreateEntry(EntryDraft{
			Date:        d.Date,
			Amount:      d.Amount,
			Category:    d.Category,
			Description: d.Description,
			Type:        EntryType(d.Type),
			ImageURL:    imageURL,
		}, userID)
		if err != nil {
			return entries, fmt.Errorf("saving extracted entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetImage retrieves a stored receipt image and its content type
func (s *Service) GetImage(name string) ([]byte, string, error) {
	data, err := s.files.Get(name)
	if err != nil {
		return nil, "", fmt.Errorf("getting image: %w", err)
	}

	contentType := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".gif":
		contentType = "image/gif"
	case ".pdf":
		contentType = "application/pdf"
	case ".heic", ".heif":
		contentType = "image/heic"
	}
	return data, contentType, nil
}

// GetEntry retrieves a ledger entry by ID
func (s *Service) GetEntry(id string) (*Entry, error) {
	return s.db.GetEntry(id)
}

// ListEntries returns all ledger entries
func (s *Service) ListEntries() ([]*Entry, error) {
	return s.db.ListEntries()
}

// ListEntriesBetween returns the entries with startDate <= date <= endDate.
// Canonical date strings compare correctly as strings.
func (s *Service) ListEntriesBetween(startDate, endDate string) ([]*Entry, error) {
	entries, err := s.db.ListEntries()
	if err != nil {
		return nil, err
	}

	filtered := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if (startDate == "" || e.Date >= startDate) && (endDate == "" || e.Date <= endDate) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// UpdateEntry applies an owner's partial update. Only the creating user may
// update an entry; anyone else sees ErrNotFound.
func (s *Service) UpdateEntry(id string, update EntryUpdate, userID string) (*Entry, error) {
	entry, err := s.db.GetEntry(id)
	if err != nil {
		return nil, err
	}
	if entry.CreatedBy != userID {
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}

	if update.Date != nil {
		if _, err := ParseDate(*update.Date); err != nil {
			return nil, fmt.Errorf("parsing date: %w", err)
		}
		entry.Date = *update.Date
	}
	if update.Amount != nil {
		if *update.Amount <= 0 {
			return nil, fmt.Errorf("amount must be positive")
		}
		entry.Amount = *update.Amount
	}
	if update.Category != nil {
		entry.Category = *update.Category
	}
	if update.Description != nil {
		entry.Description = *update.Description
	}
	if update.Type != nil {
		entry.Type = *update.Type
	}
	if update.ImageURL != nil {
		entry.ImageURL = *update.ImageURL
	}
	entry.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveEntry(entry); err != nil {
		return nil, fmt.Errorf("saving entry: %w", err)
	}
	return entry, nil
}

// DeleteEntry removes an entry. Only the creating user may delete it.
func (s *Service) DeleteEntry(id, userID string) error {
	entry, err := s.db.GetEntry(id)
	if err != nil {
		return err
	}
	if entry.CreatedBy != userID {
		return fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return s.db.DeleteEntry(id)
}

// Statistics aggregates the current ledger snapshot
func (s *Service) Statistics() (*Statistics, error) {
	entries, err := s.db.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return CalculateStatistics(entries), nil
}

// CreateRecurring persists a new recurring definition
func (s *Service) CreateRecurring(draft RecurringDraft, userID string) (*RecurringDefinition, error) {
	if draft.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if strings.TrimSpace(draft.Category) == "" {
		draft.Category = interpret.DefaultCategory
	}
	if draft.Type != TypeIncome {
		draft.Type = TypeExpense
	}
	if strings.TrimSpace(draft.Name) == "" {
		draft.Name = draft.Category
	}

	switch draft.RepeatType {
	case RepeatDaily, RepeatYearly:
		draft.RepeatDay = nil
	case RepeatWeekly:
		if draft.RepeatDay != nil && (*draft.RepeatDay < 0 || *draft.RepeatDay > 6) {
			return nil, fmt.Errorf("weekly repeat day must be between 0 and 6")
		}
	case RepeatMonthly:
		if draft.RepeatDay != nil && (*draft.RepeatDay < 1 || *draft.RepeatDay > 31) {
			return nil, fmt.Errorf("monthly repeat day must be between 1 and 31")
		}
	default:
		draft.RepeatType = RepeatMonthly
	}

	if _, err := ParseDate(draft.StartDate); err != nil {
		draft.StartDate = s.timeSource.Now().Format(DateLayout)
	}
	if draft.EndDate != "" {
		if _, err := ParseDate(draft.EndDate); err != nil {
			return nil, fmt.Errorf("parsing end date: %w", err)
		}
	}

	now := s.timeSource.Now()
	def := &RecurringDefinition{
		ID:          s.idGenerator.Generate(),
		Name:        draft.Name,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Description: draft.Description,
		Type:        draft.Type,
		RepeatType:  draft.RepeatType,
		RepeatDay:   draft.RepeatDay,
		StartDate:   draft.StartDate,
		EndDate:     draft.EndDate,
		IsActive:    true,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveRecurring(def); err != nil {
		return nil, fmt.Errorf("saving recurring definition: %w", err)
	}
	return def, nil
}

// ListRecurring returns all recurring definitions
func (s *Service) ListRecurring() ([]*RecurringDefinition, error) {
	return s.db.ListRecurring()
}

// UpdateRecurring applies an owner's partial update to a recurring
// definition. The last-processed marker stays untouched; only the scheduler
// advances it.
func (s *Service) UpdateRecurring(id string, update RecurringUpdate, userID string) (*RecurringDefinition, error) {
	def, err := s.db.GetRecurring(id)
	if err != nil {
		return nil, err
	}
	if def.CreatedBy != userID {
		return nil, fmt.Errorf("recurring definition %s: %w", id, ErrNotFound)
	}

	if update.Name != nil {
		def.Name = *update.Name
	}
	if update.Amount != nil {
		if *update.Amount <= 0 {
			return nil, fmt.Errorf("amount must be positive")
		}
		def.Amount = *update.Amount
	}
	if update.Category != nil {
		def.Category = *update.Category
	}
	if update.Description != nil {
		def.Description = *update.Description
	}
	if update.Type != nil {
		def.Type = *update.Type
	}
	if update.RepeatType != nil {
		def.RepeatType = *update.RepeatType
	}
	if update.RepeatDay != nil {
		def.RepeatDay = update.RepeatDay
	}
	if update.StartDate != nil {
		if _, err := ParseDate(*update.StartDate); err != nil {
			return nil, fmt.Errorf("parsing start date: %w", err)
		}
		def.StartDate = *update.StartDate
	}
	if update.EndDate != nil {
		if *update.EndDate != "" {
			if _, err := ParseDate(*update.EndDate); err != nil {
				return nil, fmt.Errorf("parsing end date: %w", err)
			}
		}
		def.EndDate = *update.EndDate
	}
	if update.IsActive != nil {
		def.IsActive = *update.IsActive
	}
	def.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveRecurring(def); err != nil {
		return nil, fmt.Errorf("saving recurring definition: %w", err)
	}
	return def, nil
}

// DeleteRecurring removes a recurring definition. Only the creating user may
// delete it.
func (s *Service) DeleteRecurring(id, userID string) error {
	def, err := s.db.GetRecurring(id)
	if err != nil {
		return err
	}
	if def.CreatedBy != userID {
		return fmt.Errorf("recurring definition %s: %w", id, ErrNotFound)
	}
	return s.db.DeleteRecurring(id)
}
