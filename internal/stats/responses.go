package stats

import (
	"context"
	"fmt"
	"time"

	"teachereval/internal/models"
)

// ResponseRow is one response with its dimension labels and raw answers,
// keyed by question code.
type ResponseRow struct {
	ID          uint
	SubmittedAt time.Time
	Course      string
	Discipline  string
	Teacher     string
	Semester    string
	SchoolYear  string
	ClassGroup  string
	Comment     string
	Answers     map[string]int `gorm:"-"`
}

// Responses lists every response matching f, oldest first, without aggregation.
func (s *Service) Responses(ctx context.Context, f Filter) ([]ResponseRow, error) {
	var rows []ResponseRow
	err := s.baseQuery(ctx, f).
		Joins("JOIN courses c ON c.id = d.course_id").
		Joins("JOIN teachers te ON te.id = t.teacher_id").
		Joins("JOIN semesters s ON s.id = t.semester_id").
		Joins("LEFT JOIN school_years sy ON sy.id = t.school_year_id").
		Joins("LEFT JOIN class_groups cg ON cg.id = t.class_group_id").
		Select("r.id AS id, r.submitted_at AS submitted_at, c.name AS course, d.name AS discipline, " +
			"te.name AS teacher, s.name AS semester, COALESCE(sy.name, '') AS school_year, " +
			"COALESCE(cg.name, '') AS class_group, COALESCE(r.comment, '') AS comment").
		Order("r.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	var answers []struct {
		ResponseID uint
		Code       string
		Value      int
	}
	err = s.baseQuery(ctx, f).
		Joins("JOIN survey_answers a ON a.response_id = r.id").
		Joins("JOIN survey_questions q ON q.id = a.question_id").
		Select("r.id AS response_id, q.code AS code, a.value AS value").
		Scan(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	index := make(map[uint]int, len(rows))
	for i := range rows {
		rows[i].Answers = make(map[string]int)
		index[rows[i].ID] = i
	}
	for _, a := range answers {
		if i, ok := index[a.ResponseID]; ok {
			rows[i].Answers[a.Code] = a.Value
		}
	}
	return rows, nil
}

// Questions lists every question, including inactive ones, in form order.
func (s *Service) Questions(ctx context.Context) ([]models.SurveyQuestion, error) {
	var qs []models.SurveyQuestion
	if err := s.db.WithContext(ctx).Order("position, id").Find(&qs).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return qs, nil
}
