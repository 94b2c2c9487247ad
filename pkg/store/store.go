// Package store persists question banks to SQLite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/coolbeans/qcmbank/internal/logger"
	"github.com/coolbeans/qcmbank/pkg/bank"
)

// ErrSubjectNotFound is returned when no subject matches a lookup.
var ErrSubjectNotFound = errors.New("subject not found")

// SubjectRef identifies the subject a bank is imported into.
type SubjectRef struct {
	Title       string
	Semester    string
	Description string
}

// Store writes question banks into a relational database.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the SQLite database at dsn and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(dsn string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	sqlDB.SetMaxOpenConns(1)

	s, err := New(db, log)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB, log *logger.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Subject{}, &Chapter{}, &Subchapter{}, &Question{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: db, log: log.With("service", "Store")}, nil
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveBank writes the bank under the subject in one transaction. The
// subject and chapters are reused when they already exist (matched by
// title); new chapters are appended after the existing ones. The subject's
// total_qcm is recomputed afterwards.
func (s *Store) SaveBank(ctx context.Context, ref SubjectRef, qb bank.QuestionBank) (*Subject, error) {
	if strings.TrimSpace(ref.Title) == "" {
		return nil, fmt.Errorf("subject title is required")
	}

	var subject *Subject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		subject, err = s.saveBank(tx, ref, qb)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bank saved",
		"subject", subject.Title,
		"semester", subject.Semester,
		"chapters", qb.TotalChapters,
		"total_qcm", subject.TotalQCM)
	return subject, nil
}

// ReplaceSubject deletes the subject and everything it owns, then saves the
// bank in its place, all in one transaction.
func (s *Store) ReplaceSubject(ctx context.Context, ref SubjectRef, qb bank.QuestionBank) (*Subject, error) {
	if strings.TrimSpace(ref.Title) == "" {
		return nil, fmt.Errorf("subject title is required")
	}

	var subject *Subject
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findSubject(tx, ref.Title, ref.Semester)
		switch {
		case errors.Is(err, ErrSubjectNotFound):
		case err != nil:
			return err
		default:
			if err := deleteSubject(tx, existing.ID); err != nil {
				return err
			}
			s.log.Info("subject replaced", "subject", existing.Title, "semester", existing.Semester)
		}

		subject, err = s.saveBank(tx, ref, qb)
		return err
	})
	if err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *Store) saveBank(tx *gorm.DB, ref SubjectRef, qb bank.QuestionBank) (*Subject, error) {
	subject, err := findOrCreateSubject(tx, ref)
	if err != nil {
		return nil, err
	}

	for _, chapter := range qb.Chapters {
		if err := saveChapter(tx, subject.ID, chapter); err != nil {
			return nil, fmt.Errorf("saving chapter %q: %w", chapter.Title, err)
		}
	}

	total, err := updateTotalQCM(tx, subject.ID)
	if err != nil {
		return nil, err
	}
	subject.TotalQCM = total
	return subject, nil
}

func findSubject(tx *gorm.DB, title, semester string) (*Subject, error) {
	var subject Subject
	err := tx.Where("title = ? AND semester = ?", title, semester).First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up subject %q: %w", title, err)
	}
	return &subject, nil
}

func findOrCreateSubject(tx *gorm.DB, ref SubjectRef) (*Subject, error) {
	subject, err := findSubject(tx, ref.Title, ref.Semester)
	if !errors.Is(err, ErrSubjectNotFound) {
		return subject, err
	}

	description := ref.Description
	if description == "" {
		description = strings.TrimSpace(fmt.Sprintf("Matière %s %s", ref.Title, ref.Semester))
	}
	tags := []string{strings.ToLower(ref.Title)}
	if ref.Semester != "" {
		tags = append(tags, strings.ToLower(ref.Semester))
	}

	subject = &Subject{
		Title:       ref.Title,
		Semester:    ref.Semester,
		Description: description,
		Tags:        mustJSON(tags),
	}
	if err := tx.Create(subject).Error; err != nil {
		return nil, fmt.Errorf("creating subject %q: %w", ref.Title, err)
	}
	return subject, nil
}

func saveChapter(tx *gorm.DB, subjectID uuid.UUID, chapter bank.Chapter) error {
	var row Chapter
	err := tx.Where("subject_id = ? AND title = ?", subjectID, chapter.Title).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		var count int64
		if err := tx.Model(&Chapter{}).Where("subject_id = ?", subjectID).Count(&count).Error; err != nil {
			return err
		}
		row = Chapter{
			SubjectID:   subjectID,
			Title:       chapter.Title,
			Description: fmt.Sprintf("%d questions", chapter.QuestionCount()),
			OrderIndex:  int(count),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	}

	// Appending to an existing chapter continues its numbering.
	var existingQuestions, existingSubchapters int64
	if err := tx.Model(&Question{}).
		Where("chapter_id = ? AND subchapter_id IS NULL", row.ID).
		Count(&existingQuestions).Error; err != nil {
		return err
	}
	if err := tx.Model(&Subchapter{}).Where("chapter_id = ?", row.ID).Count(&existingSubchapters).Error; err != nil {
		return err
	}

	var questions []Question
	for _, q := range chapter.Questions {
		question := newQuestion(row.ID, nil, q)
		question.OrderIndex += int(existingQuestions)
		questions = append(questions, question)
	}

	for _, sub := range chapter.Subchapters {
		subRow := Subchapter{ChapterID: row.ID, Title: sub.Title, OrderIndex: sub.OrderIndex + int(existingSubchapters)}
		if err := tx.Create(&subRow).Error; err != nil {
			return err
		}
		for _, q := range sub.Questions {
			questions = append(questions, newQuestion(row.ID, &subRow.ID, q))
		}
	}

	if len(questions) == 0 {
		return nil
	}
	return tx.Create(&questions).Error
}

func deleteSubject(tx *gorm.DB, subjectID uuid.UUID) error {
	chapterIDs := tx.Model(&Chapter{}).Select("id").Where("subject_id = ?", subjectID)

	if err := tx.Where("chapter_id IN (?)", chapterIDs).Delete(&Question{}).Error; err != nil {
		return fmt.Errorf("deleting questions: %w", err)
	}
	if err := tx.Where("chapter_id IN (?)", chapterIDs).Delete(&Subchapter{}).Error; err != nil {
		return fmt.Errorf("deleting subchapters: %w", err)
	}
	if err := tx.Where("subject_id = ?", subjectID).Delete(&Chapter{}).Error; err != nil {
		return fmt.Errorf("deleting chapters: %w", err)
	}
	if err := tx.Delete(&Subject{}, "id = ?", subjectID).Error; err != nil {
		return fmt.Errorf("deleting subject: %w", err)
	}
	return nil
}

// CountQuestions returns the number of questions stored under the subject.
func (s *Store) CountQuestions(ctx context.Context, subjectID uuid.UUID) (int, error) {
	return countQuestions(s.db.WithContext(ctx), subjectID)
}

func countQuestions(tx *gorm.DB, subjectID uuid.UUID) (int, error) {
	var count int64
	err := tx.Model(&Question{}).
		Joins("JOIN chapter ON chapter.id = question.chapter_id").
		Where("chapter.subject_id = ?", subjectID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting questions: %w", err)
	}
	return int(count), nil
}

// UpdateTotalQCM recomputes the subject's total_qcm and returns it.
func (s *Store) UpdateTotalQCM(ctx context.Context, subjectID uuid.UUID) (int, error) {
	return updateTotalQCM(s.db.WithContext(ctx), subjectID)
}

func updateTotalQCM(tx *gorm.DB, subjectID uuid.UUID) (int, error) {
	total, err := countQuestions(tx, subjectID)
	if err != nil {
		return 0, err
	}
	if err := tx.Model(&Subject{}).Where("id = ?", subjectID).Update("total_qcm", total).Error; err != nil {
		return 0, fmt.Errorf("updating total_qcm: %w", err)
	}
	return total, nil
}

// GetSubject loads a subject with its chapters, subchapters and questions,
// each ordered by order_index.
func (s *Store) GetSubject(ctx context.Context, title, semester string) (*Subject, error) {
	db := s.db.WithContext(ctx)
	subject, err := findSubject(db, title, semester)
	if err != nil {
		return nil, err
	}

	byOrder := func(db *gorm.DB) *gorm.DB { return db.Order("order_index") }
	err = db.
		Preload("Chapters", byOrder).
		Preload("Chapters.Subchapters", byOrder).
		Preload("Chapters.Subchapters.Questions", byOrder).
		Preload("Chapters.Questions", byOrder).
		First(subject, "id = ?", subject.ID).Error
	if err != nil {
		return nil, fmt.Errorf("loading subject %q: %w", title, err)
	}
	return subject, nil
}

// ListSubjects returns every subject ordered by semester then title.
func (s *Store) ListSubjects(ctx context.Context) ([]Subject, error) {
	var subjects []Subject
	if err := s.db.WithContext(ctx).Order("semester").Order("title").Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	return subjects, nil
}
