package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/coolbeans/qcmbank/pkg/pattern"
	"github.com/coolbeans/qcmbank/pkg/store"
)

const cellDocument = `Chapitre 1 — Cellule
QCM 1 — Rôle du noyau
A. Contrôle génétique (✅)
B. Production d'énergie (❌) → rôle mitochondrial
🧠 Conclusion : Le noyau est le centre de contrôle.
`

const parasitologyDocument = `🦠 Parasitologie

A. Généralités
QCM 1 — Le paludisme est transmis par :
A. L'anophèle femelle (✅)
B. Le culex (❌)

B. Helminthes
QCM 2 — Le ténia :
A. Est un cestode (✅)
B. Est un nématode (❌)
`

func init() {
	gin.SetMode(gin.TestMode)
}

type parseBody struct {
	Bank struct {
		TotalChapters    int `json:"totalChapters"`
		TotalSubchapters int `json:"totalSubchapters"`
		TotalQuestions   int `json:"totalQuestions"`
		Chapters         []struct {
			Title     string `json:"title"`
			Questions []struct {
				QuestionText string `json:"questionText"`
			} `json:"questions"`
		} `json:"chapters"`
	} `json:"bank"`
	Dialect struct {
		Numbering string `json:"numbering"`
	} `json:"dialect"`
	Profile string `json:"profile"`
}

func newTestRouter(t *testing.T, registry pattern.Registry, s *store.Store) *gin.Engine {
	t.Helper()
	parser := NewParseHandler(registry, 1024, nil)
	cfg := RouterConfig{ParseHandler: parser}
	if s != nil {
		cfg.SubjectHandler = NewSubjectHandler(parser, s, nil)
	}
	return NewRouter(cfg)
}

func doRequest(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Unmarshal() error = %v (body %s)", err, rec.Body.String())
	}
	return envelope.Error
}

func TestHealthCheck(t *testing.T) {
	rec := doRequest(newTestRouter(t, nil, nil), http.MethodGet, "/healthcheck", "")

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("Expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestParse(t *testing.T) {
	rec := doRequest(newTestRouter(t, nil, nil), http.MethodPost, "/api/parse", cellDocument)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body parseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if body.Bank.TotalQuestions != 1 || body.Bank.Chapters[0].Title != "Cellule" {
		t.Errorf("Unexpected bank %+v", body.Bank)
	}
	if body.Dialect.Numbering == "" {
		t.Error("Expected dialect in response")
	}
	if !strings.Contains(rec.Body.String(), `"diagnostics"`) {
		t.Error("Expected diagnostics in response")
	}
}

func TestParseFallbackTitle(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	document := "QCM 1 — Valve mitrale\nA. Bicuspide ✅\n"

	testCases := []struct {
		name   string
		target string
		title  string
	}{
		{"title parameter", "/api/parse?title=Cardiologie", "Cardiologie"},
		{"filename parameter", "/api/parse?filename=QUIZZ%20Cardio_Valves.txt", "Cardio Valves"},
		{"title wins over filename", "/api/parse?title=Coeur&filename=autre.txt", "Coeur"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodPost, testCase.target, document)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var body parseBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if body.Bank.Chapters[0].Title != testCase.title {
				t.Errorf("Expected title %q, got %q", testCase.title, body.Bank.Chapters[0].Title)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	testCases := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"invalid utf8", "/api/parse", "Titre\n\xff\n", http.StatusBadRequest, "invalid_utf8"},
		{"empty document", "/api/parse", "", http.StatusUnprocessableEntity, "empty_document"},
		{"blank document", "/api/parse", "\n\n  \n", http.StatusUnprocessableEntity, "empty_document"},
		{"body too large", "/api/parse", strings.Repeat("x", 2048), http.StatusRequestEntityTooLarge, "body_too_large"},
		{"unknown profile", "/api/parse?profile=absent", cellDocument, http.StatusBadRequest, "unknown_profile"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodPost, testCase.target, testCase.body)
			if rec.Code != testCase.status {
				t.Fatalf("Expected %d, got %d: %s", testCase.status, rec.Code, rec.Body.String())
			}
			if apiErr := decodeError(t, rec); apiErr.Code != testCase.code {
				t.Errorf("Expected code %q, got %q", testCase.code, apiErr.Code)
			}
		})
	}
}

func TestParseNoQuestionsIsOK(t *testing.T) {
	rec := doRequest(newTestRouter(t, nil, nil), http.MethodPost, "/api/parse", "Chapitre sans questions\nDu texte.\n")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no_questions_found") {
		t.Errorf("Expected no_questions_found warning, got %s", rec.Body.String())
	}
}

func TestParseWithProfile(t *testing.T) {
	off := false
	registry := pattern.NewRegistry()
	if err := registry.Register(&pattern.Profile{
		Name:      "Flat",
		ProfileID: "flat",
		Version:   "1.0.0",
		Files:     []string{"flat-*.txt"},
		Dialect:   pattern.DialectConfig{Subchapters: &off},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	router := newTestRouter(t, registry, nil)

	for _, target := range []string{"/api/parse?profile=flat", "/api/parse?filename=flat-parasito.txt"} {
		rec := doRequest(router, http.MethodPost, target, parasitologyDocument)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", target, rec.Code, rec.Body.String())
		}
		var body parseBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if body.Profile != "flat" {
			t.Errorf("%s: expected profile flat, got %q", target, body.Profile)
		}
		if body.Bank.TotalSubchapters != 0 || len(body.Bank.Chapters[0].Questions) != 2 {
			t.Errorf("%s: expected flat chapter, got %+v", target, body.Bank)
		}
	}
}

func TestSubjectImportAndGet(t *testing.T) {
	s, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	router := newTestRouter(t, nil, s)

	rec := doRequest(router, http.MethodPost, "/api/subjects/import?subject=Biologie&semester=S1", cellDocument)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var imported struct {
		Subject store.Subject `json:"subject"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &imported); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if imported.Subject.TotalQCM != 1 {
		t.Errorf("Expected total_qcm 1, got %d", imported.Subject.TotalQCM)
	}

	rec = doRequest(router, http.MethodPost, "/api/subjects/import?subject=Biologie&semester=S1&replace=true", parasitologyDocument)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/api/subjects/Biologie?semester=S1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var subject store.Subject
	if err := json.Unmarshal(rec.Body.Bytes(), &subject); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(subject.Chapters) != 1 || subject.Chapters[0].Title != "Parasitologie" {
		t.Errorf("Expected replaced subject, got %+v", subject.Chapters)
	}
	if subject.TotalQCM != 2 {
		t.Errorf("Expected total_qcm 2, got %d", subject.TotalQCM)
	}

	rec = doRequest(router, http.MethodGet, "/api/subjects", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Biologie") {
		t.Errorf("Expected subject list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSubjectImportErrors(t *testing.T) {
	s, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	router := newTestRouter(t, nil, s)

	rec := doRequest(router, http.MethodPost, "/api/subjects/import", cellDocument)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without subject, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodPost, "/api/subjects/import?subject=Biologie&replace=yes", cellDocument)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for a malformed replace flag, got %d", rec.Code)
	}
	if apiErr := decodeError(t, rec); apiErr.Code != "invalid_replace" {
		t.Errorf("Expected code %q, got %q", "invalid_replace", apiErr.Code)
	}
	if subjects, _ := s.ListSubjects(context.Background()); len(subjects) != 0 {
		t.Errorf("Expected nothing stored, got %d subjects", len(subjects))
	}

	rec = doRequest(router, http.MethodGet, "/api/subjects/Absent", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
