package store

import (
	"context"
	"errors"
	"testing"

	"github.com/coolbeans/qcmbank/pkg/bank"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func question(text string, correct bool) bank.Question {
	return bank.Question{
		QuestionText: text,
		Options: []bank.Option{
			{Text: "Vrai", IsCorrect: correct},
			{Text: "Faux", IsCorrect: !correct, Justification: bank.StringPtr("raison")},
		},
		Explanation: bank.StringPtr("Explication"),
	}
}

func sampleBank() bank.QuestionBank {
	qb, _ := bank.Assemble([]bank.Chapter{
		{
			Title:     "Cellule",
			Questions: []bank.Question{question("Rôle du noyau", true), question("Rôle de la mitochondrie", false)},
		},
		{
			Title: "Parasitologie",
			Subchapters: []bank.Subchapter{
				{Title: "Généralités", Questions: []bank.Question{question("Paludisme", true)}},
				{Title: "Helminthes", Questions: []bank.Question{question("Ténia", true), question("Ascaris", false)}},
			},
		},
	})
	return qb
}

func TestSaveBank(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	subject, err := s.SaveBank(ctx, SubjectRef{Title: "Biologie", Semester: "S1"}, sampleBank())
	if err != nil {
		t.Fatalf("SaveBank() error = %v", err)
	}

	if subject.TotalQCM != 5 {
		t.Errorf("Expected total_qcm 5, got %d", subject.TotalQCM)
	}
	if subject.Description != "Matière Biologie S1" {
		t.Errorf("Unexpected description %q", subject.Description)
	}

	loaded, err := s.GetSubject(ctx, "Biologie", "S1")
	if err != nil {
		t.Fatalf("GetSubject() error = %v", err)
	}
	if loaded.TotalQCM != 5 {
		t.Errorf("Expected stored total_qcm 5, got %d", loaded.TotalQCM)
	}
	if len(loaded.Chapters) != 2 {
		t.Fatalf("Expected 2 chapters, got %d", len(loaded.Chapters))
	}

	cell := loaded.Chapters[0]
	if cell.Title != "Cellule" || cell.OrderIndex != 0 {
		t.Errorf("Unexpected first chapter %q (%d)", cell.Title, cell.OrderIndex)
	}
	if len(cell.Questions) != 2 || cell.Questions[1].QuestionText != "Rôle de la mitochondrie" {
		t.Errorf("Unexpected direct questions %+v", cell.Questions)
	}
	for _, q := range cell.Questions {
		if q.SubchapterID != nil {
			t.Errorf("Expected direct question without subchapter, got %v", q.SubchapterID)
		}
		if q.Difficulty != DefaultDifficulty {
			t.Errorf("Expected default difficulty, got %q", q.Difficulty)
		}
	}

	parasito := loaded.Chapters[1]
	if len(parasito.Subchapters) != 2 {
		t.Fatalf("Expected 2 subchapters, got %d", len(parasito.Subchapters))
	}
	helminthes := parasito.Subchapters[1]
	if helminthes.Title != "Helminthes" || helminthes.OrderIndex != 1 {
		t.Errorf("Unexpected subchapter %q (%d)", helminthes.Title, helminthes.OrderIndex)
	}
	if len(helminthes.Questions) != 2 || helminthes.Questions[0].QuestionText != "Ténia" {
		t.Errorf("Unexpected subchapter questions %+v", helminthes.Questions)
	}
}

func TestQuestionOptionsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveBank(ctx, SubjectRef{Title: "Biologie"}, sampleBank()); err != nil {
		t.Fatalf("SaveBank() error = %v", err)
	}
	loaded, err := s.GetSubject(ctx, "Biologie", "")
	if err != nil {
		t.Fatalf("GetSubject() error = %v", err)
	}

	q := loaded.Chapters[0].Questions[0]
	options, err := q.BankOptions()
	if err != nil {
		t.Fatalf("BankOptions() error = %v", err)
	}
	if len(options) != 2 || !options[0].IsCorrect || options[1].IsCorrect {
		t.Fatalf("Unexpected options %+v", options)
	}
	if options[0].Justification != nil {
		t.Errorf("Expected null justification, got %q", *options[0].Justification)
	}
	if options[1].Justification == nil || *options[1].Justification != "raison" {
		t.Errorf("Expected justification %q, got %v", "raison", options[1].Justification)
	}
	if q.Explanation == nil || *q.Explanation != "Explication" {
		t.Errorf("Expected explanation, got %v", q.Explanation)
	}
}

func TestSaveBankReusesSubjectAndChapters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ref := SubjectRef{Title: "Biologie", Semester: "S1"}

	if _, err := s.SaveBank(ctx, ref, sampleBank()); err != nil {
		t.Fatalf("SaveBank() error = %v", err)
	}

	extra, _ := bank.Assemble([]bank.Chapter{
		{Title: "Cellule", Questions: []bank.Question{question("Membrane", true)}},
		{Title: "Histologie", Questions: []bank.Question{question("Épithélium", true)}},
	})
	subject, err := s.SaveBank(ctx, ref, extra)
	if err != nil {
		t.Fatalf("SaveBank() error = %v", err)
	}
	if subject.TotalQCM != 7 {
		t.Errorf("Expected total_qcm 7, got %d", subject.TotalQCM)
	}

	subjects, err := s.ListSubjects(ctx)
	if err != nil {
		t.Fatalf("ListSubjects() error = %v", err)
	}
	if len(subjects) != 1 {
		t.Errorf("Expected the subject to be reused, got %d subjects", len(subjects))
	}

	loaded, err := s.GetSubject(ctx, "Biologie", "S1")
	if err != nil {
		t.Fatalf("GetSubject() error = %v", err)
	}
	if len(loaded.Chapters) != 3 {
		t.Fatalf("Expected 3 chapters, got %d", len(loaded.Chapters))
	}
	if loaded.Chapters[2].Title != "Histologie" || loaded.Chapters[2].OrderIndex != 2 {
		t.Errorf("Expected new chapter appended, got %q (%d)", loaded.Chapters[2].Title, loaded.Chapters[2].OrderIndex)
	}
	if len(loaded.Chapters[0].Questions) != 3 {
		t.Errorf("Expected questions appended to existing chapter, got %d", len(loaded.Chapters[0].Questions))
	}
}

func TestSaveBankContinuesChapterOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ref := SubjectRef{Title: "Biologie", Semester: "S1"}

	for i := 0; i < 2; i++ {
		if _, err := s.SaveBank(ctx, ref, sampleBank()); err != nil {
			t.Fatalf("SaveBank() #%d error = %v", i+1, err)
		}
	}

	loaded, err := s.GetSubject(ctx, "Biologie", "S1")
	if err != nil {
		t.Fatalf("GetSubject() error = %v", err)
	}
	if len(loaded.Chapters) != 2 {
		t.Fatalf("Expected 2 chapters, got %d", len(loaded.Chapters))
	}

	cellule := loaded.Chapters[0].Questions
	if len(cellule) != 4 {
		t.Fatalf("Expected 4 questions in Cellule, got %d", len(cellule))
	}
	for i, q := range cellule {
		if q.OrderIndex != i {
			t.Errorf("Cellule question %d order_index = %d, want %d", i, q.OrderIndex, i)
		}
	}

	subs := loaded.Chapters[1].Subchapters
	if len(subs) != 4 {
		t.Fatalf("Expected 4 subchapters in Parasitologie, got %d", len(subs))
	}
	want := []string{"Généralités", "Helminthes", "Généralités", "Helminthes"}
	for i, sub := range subs {
		if sub.OrderIndex != i {
			t.Errorf("subchapter %d order_index = %d, want %d", i, sub.OrderIndex, i)
		}
		if sub.Title != want[i] {
			t.Errorf("subchapter %d title = %q, want %q", i, sub.Title, want[i])
		}
	}
}

func TestReplaceSubject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ref := SubjectRef{Title: "Biologie", Semester: "S1"}

	if _, err := s.SaveBank(ctx, ref, sampleBank()); err != nil {
		t.Fatalf("SaveBank() error = %v", err)
	}
	other := SubjectRef{Title: "Anatomie", Semester: "S1"}
	if _, err := s.SaveBank(ctx, other, sampleBank()); err != nil {
		t.Fatalf("SaveBank() error = %v", err)
	}

	replacement, _ := bank.Assemble([]bank.Chapter{
		{Title: "Histologie", Questions: []bank.Question{question("Épithélium", true)}},
	})
	subject, err := s.ReplaceSubject(ctx, ref, replacement)
	if err != nil {
		t.Fatalf("ReplaceSubject() error = %v", err)
	}
	if subject.TotalQCM != 1 {
		t.Errorf("Expected total_qcm 1, got %d", subject.TotalQCM)
	}

	loaded, err := s.GetSubject(ctx, "Biologie", "S1")
	if err != nil {
		t.Fatalf("GetSubject() error = %v", err)
	}
	if len(loaded.Chapters) != 1 || loaded.Chapters[0].Title != "Histologie" {
		t.Errorf("Expected only the replacement chapter, got %+v", loaded.Chapters)
	}

	var subchapters int64
	s.DB().Model(&Subchapter{}).Count(&subchapters)
	if subchapters != 2 {
		t.Errorf("Expected only the other subject's subchapters to remain, got %d", subchapters)
	}

	untouched, err := s.GetSubject(ctx, "Anatomie", "S1")
	if err != nil {
		t.Fatalf("GetSubject() error = %v", err)
	}
	if untouched.TotalQCM != 5 {
		t.Errorf("Expected other subject untouched, got total_qcm %d", untouched.TotalQCM)
	}
}

func TestReplaceSubjectCreatesMissing(t *testing.T) {
	s := openTestStore(t)

	subject, err := s.ReplaceSubject(context.Background(), SubjectRef{Title: "Nouveau"}, sampleBank())
	if err != nil {
		t.Fatalf("ReplaceSubject() error = %v", err)
	}
	if subject.TotalQCM != 5 {
		t.Errorf("Expected total_qcm 5, got %d", subject.TotalQCM)
	}
}

func TestCountAndUpdateTotalQCM(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	subject, err := s.SaveBank(ctx, SubjectRef{Title: "Biologie"}, sampleBank())
	if err != nil {
		t.Fatalf("SaveBank() error = %v", err)
	}

	if err := s.DB().Where("question_text = ?", "Ascaris").Delete(&Question{}).Error; err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	count, err := s.CountQuestions(ctx, subject.ID)
	if err != nil {
		t.Fatalf("CountQuestions() error = %v", err)
	}
	if count != 4 {
		t.Errorf("CountQuestions() = %d, want 4", count)
	}

	total, err := s.UpdateTotalQCM(ctx, subject.ID)
	if err != nil {
		t.Fatalf("UpdateTotalQCM() error = %v", err)
	}
	if total != 4 {
		t.Errorf("UpdateTotalQCM() = %d, want 4", total)
	}

	loaded, err := s.GetSubject(ctx, "Biologie", "")
	if err != nil {
		t.Fatalf("GetSubject() error = %v", err)
	}
	if loaded.TotalQCM != 4 {
		t.Errorf("Expected stored total_qcm 4, got %d", loaded.TotalQCM)
	}
}

func TestSaveBankRequiresTitle(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.SaveBank(context.Background(), SubjectRef{Title: "  "}, sampleBank()); err == nil {
		t.Error("Expected error for empty subject title")
	}
	if _, err := s.ReplaceSubject(context.Background(), SubjectRef{}, sampleBank()); err == nil {
		t.Error("Expected error for empty subject title")
	}
}

func TestGetSubjectNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetSubject(context.Background(), "Absent", "S1")
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("Expected ErrSubjectNotFound, got %v", err)
	}
}

func TestSaveEmptyBank(t *testing.T) {
	s := openTestStore(t)

	subject, err := s.SaveBank(context.Background(), SubjectRef{Title: "Vide"}, bank.QuestionBank{})
	if err != nil {
		t.Fatalf("SaveBank() error = %v", err)
	}
	if subject.TotalQCM != 0 {
		t.Errorf("Expected total_qcm 0, got %d", subject.TotalQCM)
	}
}
