package extract

import "testing"

func TestClassify(t *testing.T) {
	qcm := &Dialect{Numbering: NumberingQCM}
	glyph := &Dialect{Numbering: NumberingGlyph}

	tests := []struct {
		name        string
		dialect     *Dialect
		mode        Mode
		line        string
		kind        Kind
		provisional bool
		number      int
		body        string
	}{
		{"blank", qcm, ModeQuestion, "", Blank, false, 0, ""},
		{"brain conclusion", qcm, ModeQuestion, "🧠 Conclusion : Le noyau", ExplanationMarker, false, 0, "Le noyau"},
		{"blue heart conclusion", qcm, ModeQuestion, "🩵 Conclusion: suite", ExplanationMarker, false, 0, "suite"},
		{"speech bubble", qcm, ModeQuestion, "💬 Commentaire", ExplanationMarker, false, 0, "Commentaire"},
		{"general justification", qcm, ModeQuestion, "Justification générale : tout", ExplanationMarker, false, 0, "tout"},
		{"justification", qcm, ModeQuestion, "Justification : texte", ExplanationMarker, false, 0, "texte"},
		{"qcm em dash", qcm, ModeChapter, "QCM 3 — Texte", QuestionMarker, false, 3, "Texte"},
		{"qcm en dash", qcm, ModeChapter, "QCM 12 – Texte long", QuestionMarker, false, 12, "Texte long"},
		{"qcm hyphen", qcm, ModeChapter, "QCM 7 - Texte", QuestionMarker, false, 7, "Texte"},
		{"qcm without text", qcm, ModeChapter, "QCM 4 —", QuestionMarker, false, 4, ""},
		{"qcm check prefix", qcm, ModeChapter, "✅ QCM 5", QuestionMarker, false, 5, ""},
		{"qcm lowercase colon", qcm, ModeChapter, "qcm 6: texte", QuestionMarker, false, 6, "texte"},
		{"qcm in seeking mode", qcm, ModeSeeking, "QCM 1 — Début", QuestionMarker, false, 1, "Début"},
		{"chapter title", qcm, ModeSeeking, "Chapitre 1 — Cellule", ChapterTitle, false, 0, "Chapitre 1 — Cellule"},
		{"paren option", qcm, ModeQuestion, "A) Texte", OptionLine, false, 0, "Texte"},
		{"annotated option", qcm, ModeQuestion, "A. Texte ❌", OptionLine, false, 0, "Texte ❌"},
		{"bare option", qcm, ModeQuestion, "B. Texte", OptionLine, true, 0, "Texte"},
		{"lowercase option", qcm, ModeQuestion, "a. Texte", OptionLine, false, 0, "Texte"},
		{"dash option", qcm, ModeQuestion, "A- Texte ❌ → raison", OptionLine, false, 0, "Texte ❌ → raison"},
		{"dash option without space", qcm, ModeQuestion, "b-Texte", OptionLine, false, 0, "Texte"},
		{"bracket option", qcm, ModeQuestion, "C] Texte", OptionLine, false, 0, "Texte"},
		{"subchapter shape", qcm, ModeChapter, "F. Annexes", SubchapterHeader, true, 0, "Annexes"},
		{"subchapter without space", qcm, ModeChapter, "B.TISSUS", SubchapterHeader, true, 0, "TISSUS"},
		{"annotated letter outside options", qcm, ModeQuestion, "G. Texte ✅", Continuation, false, 0, "G. Texte ✅"},
		{"free text", qcm, ModeQuestion, "Un texte libre", Continuation, false, 0, "Un texte libre"},
		{"keycap question", glyph, ModeChapter, "2\ufe0f\u20e3 Question : Quelle couche ?", QuestionMarker, false, 2, "Quelle couche ?"},
		{"two digit keycap", glyph, ModeChapter, "10\ufe0f\u20e3 Question : Dix", QuestionMarker, false, 10, "Dix"},
		{"keycap section title", glyph, ModeChapter, "3\ufe0f\u20e3 Définition générale", QuestionMarker, false, 3, "Définition générale"},
		{"circled numeral", glyph, ModeChapter, "③ Le cœur", QuestionMarker, false, 3, "Le cœur"},
		{"bare question", glyph, ModeChapter, "Question : Pourquoi ?", QuestionMarker, false, 0, "Pourquoi ?"},
		{"qcm line under glyph dialect", glyph, ModeChapter, "QCM 1 — x", Continuation, false, 0, "QCM 1 — x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.dialect.Classify(tt.line, tt.mode)
			if got.Kind != tt.kind {
				t.Fatalf("Expected kind %s, got %s", tt.kind, got.Kind)
			}
			if got.Provisional != tt.provisional {
				t.Errorf("Expected provisional=%v, got %v", tt.provisional, got.Provisional)
			}
			if got.Number != tt.number {
				t.Errorf("Expected number %d, got %d", tt.number, got.Number)
			}
			if got.Body != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, got.Body)
			}
		})
	}
}

func TestClassifyOptionLetterIsUpperCase(t *testing.T) {
	d := &Dialect{Numbering: NumberingQCM}
	for _, line := range []string{"c. Texte", "C- Texte", "c] Texte"} {
		if got := d.Classify(line, ModeQuestion); got.Letter != 'C' {
			t.Errorf("Classify(%q) letter = %c, want C", line, got.Letter)
		}
	}
}

func TestClassifyZeroDialect(t *testing.T) {
	var d Dialect

	if got := d.Classify("QCM 2 — Texte", ModeChapter); got.Kind != QuestionMarker {
		t.Errorf("Expected zero dialect to use QCM numbering, got %s", got.Kind)
	}
	if got := d.Classify("🩵 Conclusion : x", ModeQuestion); got.Kind != ExplanationMarker {
		t.Errorf("Expected zero dialect to use default explanation markers, got %s", got.Kind)
	}
}

func TestKindString(t *testing.T) {
	if OptionLine.String() != "option-line" {
		t.Errorf("Unexpected name %q", OptionLine.String())
	}
	if Kind(42).String() != "kind(42)" {
		t.Errorf("Unexpected name %q", Kind(42).String())
	}
}

func TestGlyphNumber(t *testing.T) {
	tests := map[string]int{
		"1\ufe0f\u20e3":             1,
		"12\ufe0f\u20e3":            12,
		"1\ufe0f\u20e30\ufe0f\u20e3": 10,
		"3\u20e3":                   3,
		"\u2460":                    1,
		"\u2473":                    20,
	}
	for glyph, want := range tests {
		if got := glyphNumber(glyph); got != want {
			t.Errorf("glyphNumber(%q) = %d, want %d", glyph, got, want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	text := "\ufeffTitre  \r\n\r\n  QCM 1 — e\u0301tude\u200b\n"

	lines := SplitLines(text)

	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "Titre" {
		t.Errorf("Expected BOM and spaces stripped, got %q", lines[0])
	}
	if lines[1] != "" {
		t.Errorf("Expected blank line kept, got %q", lines[1])
	}
	if lines[2] != "QCM 1 — étude" {
		t.Errorf("Expected NFC composed text, got %q", lines[2])
	}
}
