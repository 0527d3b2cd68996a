// Package stats aggregates survey answers for reports. It never writes.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"teachereval/internal/models"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// DefaultThreshold is the anonymity threshold used when none is configured.
const DefaultThreshold = 5

// InsufficientSample replaces the aggregates when too few responses match.
type InsufficientSample struct {
	Count     int64 `json:"count"`
	Threshold int   `json:"threshold"`
}

type QuestionStat struct {
	ID       uint    `json:"id"`
	Code     string  `json:"code"`
	Text     string  `json:"text"`
	Area     string  `json:"area"`
	Position int     `json:"-"`
	Average  float64 `json:"average"`
	Answers  int64   `json:"answers"`
}

type AreaStat struct {
	Area      string  `json:"area"`
	Average   float64 `json:"average"`
	Questions int     `json:"questions"`
}

type Comment struct {
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Summary is the aggregated view of the responses matching a Filter.
// When Insufficient is set every aggregate below ResponseCount is withheld.
type Summary struct {
	Filter        Filter              `json:"filter"`
	Threshold     int                 `json:"threshold"`
	ResponseCount int64               `json:"response_count"`
	Insufficient  *InsufficientSample `json:"insufficient_sample,omitempty"`

	TeacherCount int64          `json:"teacher_count,omitempty"`
	Questions    []QuestionStat `json:"questions,omitempty"`
	Areas        []AreaStat     `json:"areas,omitempty"`
	Comments     []Comment      `json:"comments,omitempty"`
	Daily        []DailyCount   `json:"daily,omitempty"`
}

func (s *Summary) Sufficient() bool {
	return s.Insufficient == nil
}

type Service struct {
	db        *gorm.DB
	threshold int
	now       func() time.Time
}

func NewService(db *gorm.DB, threshold int) *Service {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Service{db: db, threshold: threshold, now: time.Now}
}

func (s *Service) Threshold() int {
	return s.threshold
}

// baseQuery selects responses joined with their teaching and discipline,
// restricted by f.
func (s *Service) baseQuery(ctx context.Context, f Filter) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("survey_responses AS r").
		Joins("JOIN teachings t ON t.id = r.teaching_id").
		Joins("JOIN disciplines d ON d.id = t.discipline_id").
		Scopes(f.Scope)
}

// Summarize computes per-question and per-area averages, comments and daily counts
// for the responses matching f, or an insufficient-sample indicator.
func (s *Service) Summarize(ctx context.Context, f Filter) (*Summary, error) {
	summary := &Summary{Filter: f, Threshold: s.threshold}

	if err := s.baseQuery(ctx, f).Count(&summary.ResponseCount).Error; err != nil {
		return nil, fmt.Errorf("count responses: %w", err)
	}
	if summary.ResponseCount < int64(s.threshold) {
		summary.Insufficient = &InsufficientSample{Count: summary.ResponseCount, Threshold: s.threshold}
		return summary, nil
	}

	if err := s.baseQuery(ctx, f).Select("COUNT(DISTINCT t.teacher_id)").Scan(&summary.TeacherCount).Error; err != nil {
		return nil, fmt.Errorf("count teachers: %w", err)
	}

	questions, err := s.questionStats(ctx, f)
	if err != nil {
		return nil, err
	}
	summary.Questions = questions
	summary.Areas = AreaAverages(questions)

	if err := s.baseQuery(ctx, f).
		Select("r.comment AS text, r.submitted_at AS submitted_at").
		Where("r.comment IS NOT NULL AND r.comment <> ''").
		Order("r.submitted_at DESC, r.id DESC").
		Scan(&summary.Comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	var times []time.Time
	if err := s.baseQuery(ctx, f).Pluck("r.submitted_at", &times).Error; err != nil {
		return nil, fmt.Errorf("list submission times: %w", err)
	}
	summary.Daily = dailyCounts(times)

	return summary, nil
}

func (s *Service) questionStats(ctx context.Context, f Filter) ([]QuestionStat, error) {
	var stats []QuestionStat
	err := s.baseQuery(ctx, f).
		Joins("JOIN survey_answers a ON a.response_id = r.id").
		Joins("JOIN survey_questions q ON q.id = a.question_id").
		Select("q.id AS id, q.code AS code, q.text AS text, q.area AS area, q.position AS position, " +
			"AVG(a.value * 1.0) AS average, COUNT(a.id) AS answers").
		Group("q.id, q.code, q.text, q.area, q.position").
		Order("q.position, q.id").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("question averages: %w", err)
	}
	return stats, nil
}

// AreaAverages groups question averages by area. An area's average is the plain
// mean of its question averages, so every question weighs the same no matter
// how many answers it got. Areas keep the order of their first question.
func AreaAverages(questions []QuestionStat) []AreaStat {
	var areas []AreaStat
	index := make(map[string]int)
	sums := make(map[string]float64)

	for _, q := range questions {
		i, ok := index[q.Area]
		if !ok {
			i = len(areas)
			index[q.Area] = i
			areas = append(areas, AreaStat{Area: q.Area})
		}
		areas[i].Questions++
		sums[q.Area] += q.Average
	}
	for i := range areas {
		areas[i].Average = sums[areas[i].Area] / float64(areas[i].Questions)
	}
	return areas
}

func dailyCounts(times []time.Time) []DailyCount {
	counts := make(map[string]int64)
	for _, ts := range times {
		counts[ts.UTC().Format(dateLayout)]++
	}
	days := make([]DailyCount, 0, len(counts))
	for day, n := range counts {
		days = append(days, DailyCount{Date: day, Count: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// Dashboard is the overview shown on the admin landing page.
type Dashboard struct {
	TotalResponses    int64        `json:"total_responses"`
	TeachersEvaluated int64        `json:"teachers_evaluated,omitempty"`
	Courses           int64        `json:"courses"`
	Disciplines       int64        `json:"disciplines"`
	Teachers          int64        `json:"teachers"`
	Daily             []DailyCount `json:"daily,omitempty"`
	Overview          *Summary     `json:"overview"`
}

// DashboardDays is how many days of submissions the dashboard charts.
const DashboardDays = 30

// Dashboard gathers global counts, the last DashboardDays of submissions and the
// unfiltered summary. Below the anonymity threshold the evaluated-teacher count
// and the daily histogram are withheld along with the summary.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	var d Dashboard

	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.SurveyResponse{}, &d.TotalResponses},
		{&models.Course{}, &d.Courses},
		{&models.Discipline{}, &d.Disciplines},
		{&models.Teacher{}, &d.Teachers},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count %T: %w", c.model, err)
		}
	}

	if err := s.baseQuery(ctx, Filter{}).Select("COUNT(DISTINCT t.teacher_id)").Scan(&d.TeachersEvaluated).Error; err != nil {
		return nil, fmt.Errorf("count evaluated teachers: %w", err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(DashboardDays - 1))
	var times []time.Time
	if err := db.Model(&models.SurveyResponse{}).Where("submitted_at >= ?", since).Pluck("submitted_at", &times).Error; err != nil {
		return nil, fmt.Errorf("recent submissions: %w", err)
	}
	d.Daily = fillDays(dailyCounts(times), since, DashboardDays)

	overview, err := s.Summarize(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	// the overview's own per-day list duplicates Daily
	overview.Daily = nil
	d.Overview = overview
	if !overview.Sufficient() {
		d.TeachersEvaluated = 0
		d.Daily = nil
	}

	return &d, nil
}

func fillDays(counts []DailyCount, from time.Time, days int) []DailyCount {
	byDate := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}
	out := make([]DailyCount, days)
	for i := range out {
		date := from.AddDate(0, 0, i).Format(dateLayout)
		out[i] = DailyCount{Date: date, Count: byDate[date]}
	}
	return out
}
