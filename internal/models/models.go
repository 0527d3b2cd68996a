package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Answer values accepted for a survey question.
const (
	AnswerMin = 0
	AnswerMax = 2
)

var ErrAnswerOutOfRange = errors.New("answer value must be 0, 1 or 2")

// Course represents a degree programme
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	CreatedAt time.Time `json:"-"`

	Disciplines []Discipline `gorm:"foreignKey:CourseID" json:"-"`
}

// Discipline represents a subject taught within a course
type Discipline struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_discipline_course_name" json:"course_id"`
	Name      string    `gorm:"not null;size:255;uniqueIndex:idx_discipline_course_name" json:"name"`
	CreatedAt time.Time `json:"-"`

	Course Course `gorm:"foreignKey:CourseID" json:"-"`
}

type Teacher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	CreatedAt time.Time `json:"-"`
}

type Semester struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:100" json:"name"`
}

type SchoolYear struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:100" json:"name"`
}

// ClassGroup is a class or shift, e.g. "A - Morning"
type ClassGroup struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:100" json:"name"`
}

// Teaching records that a teacher taught a discipline in a semester,
// optionally for a school year and a class group. The tuple is unique;
// see database.Migrate for the index.
type Teaching struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TeacherID    uint      `gorm:"not null;index" json:"teacher_id"`
	DisciplineID uint      `gorm:"not null;index" json:"discipline_id"`
	SemesterID   uint      `gorm:"not null;index" json:"semester_id"`
	SchoolYearID *uint     `gorm:"index" json:"school_year_id,omitempty"`
	ClassGroupID *uint     `gorm:"index" json:"class_group_id,omitempty"`
	CreatedAt    time.Time `json:"-"`

	Teacher    Teacher     `gorm:"foreignKey:TeacherID" json:"-"`
	Discipline Discipline  `gorm:"foreignKey:DisciplineID" json:"-"`
	Semester   Semester    `gorm:"foreignKey:SemesterID" json:"-"`
	SchoolYear *SchoolYear `gorm:"foreignKey:SchoolYearID" json:"-"`
	ClassGroup *ClassGroup `gorm:"foreignKey:ClassGroupID" json:"-"`
}

// SurveyQuestion is one item of the questionnaire, grouped by area
type SurveyQuestion struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Code     string `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Text     string `gorm:"not null;type:text" json:"text"`
	Area     string `gorm:"not null;size:100;index" json:"area"`
	Position int    `gorm:"not null;default:0" json:"position"`
	Active   bool   `gorm:"not null" json:"active"`
}

// SurveyResponse is one anonymous submission. It never stores who answered.
type SurveyResponse struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TeachingID  uint      `gorm:"not null;index" json:"teaching_id"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`
	Comment     string    `gorm:"type:text" json:"comment,omitempty"`

	Teaching Teaching       `gorm:"foreignKey:TeachingID" json:"-"`
	Answers  []SurveyAnswer `gorm:"foreignKey:ResponseID" json:"answers,omitempty"`
}

type SurveyAnswer struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ResponseID uint `gorm:"not null;uniqueIndex:idx_answer_response_question" json:"response_id"`
	QuestionID uint `gorm:"not null;uniqueIndex:idx_answer_response_question;index" json:"question_id"`
	Value      int  `gorm:"not null;check:chk_survey_answers_value,value >= 0 AND value <= 2" json:"value"`

	Question SurveyQuestion `gorm:"foreignKey:QuestionID" json:"-"`
}

// ValidAnswer reports whether v is inside the answer domain
func ValidAnswer(v int) bool {
	return v >= AnswerMin && v <= AnswerMax
}

// BeforeCreate rejects values the CHECK constraint would refuse, with a clearer error
func (a *SurveyAnswer) BeforeCreate(tx *gorm.DB) error {
	if !ValidAnswer(a.Value) {
		return ErrAnswerOutOfRange
	}
	return nil
}

// All lists every model in dependency order, parents first.
func All() []interface{} {
	return []interface{}{
		&Course{},
		&Discipline{},
		&Teacher{},
		&Semester{},
		&SchoolYear{},
		&ClassGroup{},
		&Teaching{},
		&SurveyQuestion{},
		&SurveyResponse{},
		&SurveyAnswer{},
	}
}
