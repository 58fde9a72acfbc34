package ledger

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListEntries returns ledger entries, optionally bounded by the start
// and end query parameters (YYYY-MM-DD, inclusive)
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	entries, err := s.service.ListEntriesBetween(start, end)
	if err != nil {
		slog.Error("Error listing entries", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleCreateEntry creates a ledger entry from a manual form submission
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var draft EntryDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := s.service.CreateEntry(draft, s.userID(r))
	if err != nil {
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// handleGetEntry returns a single ledger entry
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.GetEntry(r.PathValue("id"))
	if err != nil {
		corsError(w, "Entry not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// handleUpdateEntry applies an owner's update to an entry
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var update EntryUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := s.service.UpdateEntry(r.PathValue("id"), update, s.userID(r))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Entry not found", http.StatusNotFound)
			return
		}
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// handleDeleteEntry deletes an entry
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteEntry(r.PathValue("id"), s.userID(r)); err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Entry not found", http.StatusNotFound)
			return
		}
		slog.Error("Error deleting entry", "error", err)
		corsError(w, "Error deleting entry", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleInterpret extracts and persists ledger data from free-form text
func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		corsError(w, "Text required", http.StatusBadRequest)
		return
	}

	result, err := s.service.InterpretText(r.Context(), req.Text, s.userID(r))
	if err != nil {
		slog.Error("Error interpreting text", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleUploadImage handles receipt image upload and extraction
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	// 50MB to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		corsError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		corsError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		corsError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		corsError(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic", ".heif":
			contentType = "image/heic"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	entries, err := s.service.CreateFromImage(header.Filename, data, contentType, s.userID(r))
	if err != nil {
		slog.Error("Error processing image", "filename", header.Filename, "error", err)
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, entries)
}

// handleGetImage returns a stored receipt image
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetImage(r.PathValue("name"))
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleStatistics returns the aggregate statistics over all entries
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Statistics()
	if err != nil {
		slog.Error("Error calculating statistics", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleListRecurring returns all recurring definitions
func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	defs, err := s.service.ListRecurring()
	if err != nil {
		slog.Error("Error listing recurring definitions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, defs)
}

// handleCreateRecurring creates a recurring definition from a manual form
func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var draft RecurringDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	def, err := s.service.CreateRecurring(draft, s.userID(r))
	if err != nil {
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, def)
}

// handleUpdateRecurring applies an owner's update to a recurring definition
func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var update RecurringUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	def, err := s.service.UpdateRecurring(r.PathValue("id"), update, s.userID(r))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Recurring definition not found", http.StatusNotFound)
			return
		}
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, def)
}

// handleDeleteRecurring deletes a recurring definition
func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRecurring(r.PathValue("id"), s.userID(r)); err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Recurring definition not found", http.StatusNotFound)
			return
		}
		slog.Error("Error deleting recurring definition", "error", err)
		corsError(w, "Error deleting recurring definition", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleProcessDue sweeps all active definitions for the target date
// (?date=YYYY-MM-DD, empty means today) and returns the created entries
func (s *Server) handleProcessDue(w http.ResponseWriter, r *http.Request) {
	entries, err := s.scheduler.ProcessDue(r.URL.Query().Get("date"))
	if err != nil {
		slog.Error("Error processing recurring definitions", "error", err)
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleProcessOne materializes one definition regardless of due state
func (s *Server) handleProcessOne(w http.ResponseWriter, r *http.Request) {
	entry, err := s.scheduler.ProcessOne(r.PathValue("id"), r.URL.Query().Get("date"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Recurring definition not found", http.StatusNotFound)
			return
		}
		slog.Error("Error processing recurring definition", "error", err)
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}
