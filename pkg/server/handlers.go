package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coolbeans/qcmbank/internal/logger"
	"github.com/coolbeans/qcmbank/pkg/extract"
	"github.com/coolbeans/qcmbank/pkg/pattern"
	"github.com/coolbeans/qcmbank/pkg/store"
)

// DefaultMaxBodyBytes bounds the size of an uploaded document.
const DefaultMaxBodyBytes int64 = 4 << 20

// ParseHandler parses documents posted as raw text.
type ParseHandler struct {
	registry     pattern.Registry
	detector     *pattern.Detector
	maxBodyBytes int64
	log          *logger.Logger
}

// NewParseHandler creates a ParseHandler. registry may be nil.
func NewParseHandler(registry pattern.Registry, maxBodyBytes int64, log *logger.Logger) *ParseHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	if log == nil {
		log = logger.Nop()
	}
	h := &ParseHandler{
		registry:     registry,
		maxBodyBytes: maxBodyBytes,
		log:          log.With("handler", "ParseHandler"),
	}
	if registry != nil {
		h.detector = pattern.NewDetector(registry)
	}
	return h
}

// ParseResponse is the body returned by POST /api/parse.
type ParseResponse struct {
	*extract.Result
	Profile string `json:"profile,omitempty"`
}

// Parse handles POST /api/parse.
//
// Query parameters: title (fallback chapter title), filename (used for the
// fallback title and profile globs when title is absent) and profile (force
// a profile by ID).
func (h *ParseHandler) Parse(c *gin.Context) {
	result, profile, ok := h.parseBody(c)
	if !ok {
		return
	}

	resp := ParseResponse{Result: result}
	if profile != nil {
		resp.Profile = profile.ProfileID
	}
	RespondOK(c, resp)
}

// parseBody reads and parses the request body. It writes the error response
// itself and reports false on failure.
func (h *ParseHandler) parseBody(c *gin.Context) (*extract.Result, *pattern.Profile, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Errorf("document exceeds %d bytes", h.maxBodyBytes))
			return nil, nil, false
		}
		RespondError(c, http.StatusBadRequest, "read_failed", err)
		return nil, nil, false
	}

	text := string(body)
	filename := c.Query("filename")
	title := strings.TrimSpace(c.Query("title"))
	if title == "" && filename != "" {
		title = extract.TitleFromFileName(filename)
	}

	profile, err := h.selectProfile(c.Query("profile"), filename, text)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unknown_profile", err)
		return nil, nil, false
	}

	hints := extract.Hints{FallbackTitle: title}
	if profile != nil {
		hints = profile.Hints(title)
	}

	result, err := extract.Parse(text, hints)
	switch {
	case errors.Is(err, extract.ErrInvalidUTF8):
		RespondError(c, http.StatusBadRequest, "invalid_utf8", err)
		return nil, nil, false
	case errors.Is(err, extract.ErrEmptyDocument):
		RespondError(c, http.StatusUnprocessableEntity, "empty_document", err)
		return nil, nil, false
	case err != nil:
		h.log.Error("parse failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "parse_failed", err)
		return nil, nil, false
	}

	h.log.Debug("document parsed",
		"bytes", len(body),
		"questions", result.Bank.TotalQuestions,
		"dropped", result.Diagnostics.Dropped())
	return result, profile, true
}

func (h *ParseHandler) selectProfile(id, filename, text string) (*pattern.Profile, error) {
	if id == "" {
		return h.detector.Select(filename, text), nil
	}
	if h.registry == nil {
		return nil, fmt.Errorf("profile %q not found", id)
	}
	profile, ok := h.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("profile %q not found", id)
	}
	return profile, nil
}

// SubjectHandler persists parsed documents into the store.
type SubjectHandler struct {
	parser *ParseHandler
	store  *store.Store
	log    *logger.Logger
}

func NewSubjectHandler(parser *ParseHandler, s *store.Store, log *logger.Logger) *SubjectHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SubjectHandler{parser: parser, store: s, log: log.With("handler", "SubjectHandler")}
}

// ImportResponse is the body returned by POST /api/subjects/import.
type ImportResponse struct {
	Subject     *store.Subject      `json:"subject"`
	Diagnostics extract.Diagnostics `json:"diagnostics"`
}

// Import handles POST /api/subjects/import?subject=...&semester=...&replace=true.
func (h *SubjectHandler) Import(c *gin.Context) {
	ref := store.SubjectRef{
		Title:    strings.TrimSpace(c.Query("subject")),
		Semester: strings.TrimSpace(c.Query("semester")),
	}
	if ref.Title == "" {
		RespondError(c, http.StatusBadRequest, "missing_subject", errors.New("subject query parameter is required"))
		return
	}
	var replace bool
	if raw := c.Query("replace"); raw != "" {
		var err error
		if replace, err = strconv.ParseBool(raw); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_replace", err)
			return
		}
	}

	result, _, ok := h.parser.parseBody(c)
	if !ok {
		return
	}

	save := h.store.SaveBank
	if replace {
		save = h.store.ReplaceSubject
	}
	subject, err := save(c.Request.Context(), ref, result.Bank)
	if err != nil {
		h.log.Error("import failed", "subject", ref.Title, "error", err)
		RespondError(c, http.StatusInternalServerError, "store_failed", err)
		return
	}

	RespondOK(c, ImportResponse{Subject: subject, Diagnostics: result.Diagnostics})
}

// List handles GET /api/subjects.
func (h *SubjectHandler) List(c *gin.Context) {
	subjects, err := h.store.ListSubjects(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "store_failed", err)
		return
	}
	RespondOK(c, gin.H{"subjects": subjects})
}

// Get handles GET /api/subjects/:title?semester=...
func (h *SubjectHandler) Get(c *gin.Context) {
	subject, err := h.store.GetSubject(c.Request.Context(), c.Param("title"), c.Query("semester"))
	switch {
	case errors.Is(err, store.ErrSubjectNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "store_failed", err)
		return
	}
	RespondOK(c, subject)
}
