// Package survey accepts completed questionnaires and stores them anonymously.
package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teachereval/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Submission is one filled-in questionnaire. Answers maps question ID to value.
type Submission struct {
	CourseID     uint
	SemesterID   uint
	DisciplineID uint
	TeacherID    uint
	SchoolYearID *uint
	ClassGroupID *uint
	Answers      map[uint]int
	Comment      string
}

// TeachingKey is the unique tuple identifying a teaching assignment.
type TeachingKey struct {
	TeacherID    uint
	DisciplineID uint
	SemesterID   uint
	SchoolYearID *uint
	ClassGroupID *uint
}

// Options holds the reference lists the survey form is built from.
type Options struct {
	Courses     []models.Course         `json:"courses"`
	Semesters   []models.Semester       `json:"semesters"`
	SchoolYears []models.SchoolYear     `json:"school_years"`
	ClassGroups []models.ClassGroup     `json:"class_groups"`
	Teachers    []models.Teacher        `json:"teachers"`
	Questions   []models.SurveyQuestion `json:"questions"`
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Submit validates sub and stores one response with one answer per valid question.
// Answers to unknown or inactive questions, or with values outside 0..2, are skipped.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.SurveyResponse, error) {
	if err := checkRequired(sub); err != nil {
		return nil, err
	}

	var response *models.SurveyResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, sub); err != nil {
			return err
		}

		answers, err := validAnswers(tx, sub.Answers)
		if err != nil {
			return err
		}
		if len(answers) == 0 {
			return ErrNoAnswers
		}

		teaching, _, err := EnsureTeaching(tx, TeachingKey{
			TeacherID:    sub.TeacherID,
			DisciplineID: sub.DisciplineID,
			SemesterID:   sub.SemesterID,
			SchoolYearID: sub.SchoolYearID,
			ClassGroupID: sub.ClassGroupID,
		})
		if err != nil {
			return err
		}

		response = &models.SurveyResponse{
			TeachingID:  teaching.ID,
			SubmittedAt: s.now().UTC(),
			Comment:     strings.TrimSpace(sub.Comment),
		}
		if err := tx.Omit(clause.Associations).Create(response).Error; err != nil {
			return fmt.Errorf("create response: %w", err)
		}

		for i := range answers {
			answers[i].ResponseID = response.ID
		}
		if err := tx.Omit(clause.Associations).Create(&answers).Error; err != nil {
			return fmt.Errorf("create answers: %w", err)
		}
		response.Answers = answers
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// EnsureTeaching returns the teaching row for key, inserting it if absent, and
// whether it was created. The insert is a single statement guarded by the
// unique tuple index, so concurrent callers with the same key end up with the
// same row.
func EnsureTeaching(tx *gorm.DB, key TeachingKey) (*models.Teaching, bool, error) {
	teaching := models.Teaching{
		TeacherID:    key.TeacherID,
		DisciplineID: key.DisciplineID,
		SemesterID:   key.SemesterID,
		SchoolYearID: key.SchoolYearID,
		ClassGroupID: key.ClassGroupID,
	}
	res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&teaching)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert teaching: %w", res.Error)
	}
	if res.RowsAffected > 0 && teaching.ID != 0 {
		return &teaching, true, nil
	}

	var existing models.Teaching
	q := tx.Where("teacher_id = ? AND discipline_id = ? AND semester_id = ?", key.TeacherID, key.DisciplineID, key.SemesterID)
	q = whereNullable(q, "school_year_id", key.SchoolYearID)
	q = whereNullable(q, "class_group_id", key.ClassGroupID)
	if err := q.First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("find teaching: %w", err)
	}
	return &existing, false, nil
}

// Options loads the reference lists for the survey form
func (s *Service) Options(ctx context.Context) (*Options, error) {
	db := s.db.WithContext(ctx)
	var opts Options

	if err := db.Order("name").Find(&opts.Courses).Error; err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if err := db.Order("id").Find(&opts.Semesters).Error; err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	if err := db.Order("name DESC").Find(&opts.SchoolYears).Error; err != nil {
		return nil, fmt.Errorf("list school years: %w", err)
	}
	if err := db.Order("name").Find(&opts.ClassGroups).Error; err != nil {
		return nil, fmt.Errorf("list class groups: %w", err)
	}
	if err := db.Order("name").Find(&opts.Teachers).Error; err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	if err := db.Where("active = ?", true).Order("position").Find(&opts.Questions).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return &opts, nil
}

// Disciplines lists the disciplines of one course
func (s *Service) Disciplines(ctx context.Context, courseID uint) ([]models.Discipline, error) {
	var disciplines []models.Discipline
	err := s.db.WithContext(ctx).Where("course_id = ?", courseID).Order("name").Find(&disciplines).Error
	if err != nil {
		return nil, fmt.Errorf("list disciplines: %w", err)
	}
	return disciplines, nil
}

func checkRequired(sub Submission) error {
	switch {
	case sub.CourseID == 0:
		return required("course_id")
	case sub.SemesterID == 0:
		return required("semester_id")
	case sub.DisciplineID == 0:
		return required("discipline_id")
	case sub.TeacherID == 0:
		return required("teacher_id")
	}
	return nil
}

func checkReferences(tx *gorm.DB, sub Submission) error {
	var discipline models.Discipline
	if err := tx.First(&discipline, sub.DisciplineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return unknown("discipline_id")
		}
		return err
	}
	if discipline.CourseID != sub.CourseID {
		return &ValidationError{Field: "discipline_id", Message: "does not belong to the selected course"}
	}

	checks := []struct {
		field string
		model interface{}
		id    *uint
	}{
		{"course_id", &models.Course{}, &sub.CourseID},
		{"semester_id", &models.Semester{}, &sub.SemesterID},
		{"teacher_id", &models.Teacher{}, &sub.TeacherID},
		{"school_year_id", &models.SchoolYear{}, sub.SchoolYearID},
		{"class_group_id", &models.ClassGroup{}, sub.ClassGroupID},
	}
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		var n int64
		if err := tx.Model(c.model).Where("id = ?", *c.id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return unknown(c.field)
		}
	}
	return nil
}

func validAnswers(tx *gorm.DB, raw map[uint]int) ([]models.SurveyAnswer, error) {
	var active []uint
	if err := tx.Model(&models.SurveyQuestion{}).Where("active = ?", true).Order("position").Pluck("id", &active).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	answers := make([]models.SurveyAnswer, 0, len(raw))
	for _, id := range active {
		v, ok := raw[id]
		if !ok || !models.ValidAnswer(v) {
			continue
		}
		answers = append(answers, models.SurveyAnswer{QuestionID: id, Value: v})
	}
	return answers, nil
}

func whereNullable(q *gorm.DB, column string, v *uint) *gorm.DB {
	if v == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *v)
}
