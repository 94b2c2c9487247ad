package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coolbeans/qcmbank/pkg/bank"
)

// Subject groups the chapters imported for one course and semester.
type Subject struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Title       string         `gorm:"type:text;not null;index:idx_subject_title_semester,unique,priority:1" json:"title"`
	Semester    string         `gorm:"type:text;not null;default:'';index:idx_subject_title_semester,unique,priority:2" json:"semester"`
	Description string         `gorm:"type:text;not null;default:''" json:"description"`
	Tags        datatypes.JSON `gorm:"type:json" json:"tags"`
	TotalQCM    int            `gorm:"column:total_qcm;not null;default:0" json:"total_qcm"`

	Chapters []Chapter `gorm:"foreignKey:SubjectID" json:"chapters,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subject) TableName() string { return "subject" }

type Chapter struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID   uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	OrderIndex  int       `gorm:"not null;default:0" json:"order_index"`

	Subchapters []Subchapter `gorm:"foreignKey:ChapterID" json:"subchapters,omitempty"`
	// Questions includes the questions of the chapter's subchapters.
	Questions []Question `gorm:"foreignKey:ChapterID" json:"questions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Chapter) TableName() string { return "chapter" }

type Subchapter struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChapterID  uuid.UUID `gorm:"type:uuid;not null;index" json:"chapter_id"`
	Title      string    `gorm:"type:text;not null" json:"title"`
	OrderIndex int       `gorm:"not null;default:0" json:"order_index"`

	Questions []Question `gorm:"foreignKey:SubchapterID" json:"questions,omitempty"`
}

func (Subchapter) TableName() string { return "subchapter" }

// Question stores one QCM. SubchapterID is set only when the chapter is
// divided into subchapters.
type Question struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ChapterID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"chapter_id"`
	SubchapterID *uuid.UUID     `gorm:"type:uuid;index" json:"subchapter_id,omitempty"`
	QuestionText string         `gorm:"type:text;not null" json:"question_text"`
	Options      datatypes.JSON `gorm:"type:json;not null" json:"options"`
	Explanation  *string        `gorm:"type:text" json:"explanation,omitempty"`
	Difficulty   string         `gorm:"type:text;not null;default:'FACILE'" json:"difficulty"`
	OrderIndex   int            `gorm:"not null;default:0" json:"order_index"`

	CreatedAt time.Time `json:"created_at"`
}

func (Question) TableName() string { return "question" }

// DefaultDifficulty is assigned to every imported question.
const DefaultDifficulty = "FACILE"

func (s *Subject) BeforeCreate(*gorm.DB) error    { s.ID = ensureID(s.ID); return nil }
func (c *Chapter) BeforeCreate(*gorm.DB) error    { c.ID = ensureID(c.ID); return nil }
func (s *Subchapter) BeforeCreate(*gorm.DB) error { s.ID = ensureID(s.ID); return nil }
func (q *Question) BeforeCreate(*gorm.DB) error   { q.ID = ensureID(q.ID); return nil }

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// BankOptions decodes the stored options.
func (q *Question) BankOptions() ([]bank.Option, error) {
	var options []bank.Option
	if len(q.Options) == 0 {
		return options, nil
	}
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, fmt.Errorf("decoding options of question %s: %w", q.ID, err)
	}
	return options, nil
}

func mustJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

func newQuestion(chapterID uuid.UUID, subchapterID *uuid.UUID, q bank.Question) Question {
	options := q.Options
	if options == nil {
		options = []bank.Option{}
	}
	return Question{
		ChapterID:    chapterID,
		SubchapterID: subchapterID,
		QuestionText: q.QuestionText,
		Options:      mustJSON(options),
		Explanation:  q.Explanation,
		Difficulty:   DefaultDifficulty,
		OrderIndex:   q.OrderIndex,
	}
}
