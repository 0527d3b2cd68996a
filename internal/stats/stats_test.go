package stats

import (
	"context"
	"net/url"
	"testing"
	"time"

	"teachereval/internal/models"
	"teachereval/internal/survey"
	"teachereval/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// addResponse stores a response at a fixed time, bypassing the intake service.
func addResponse(t *testing.T, db *gorm.DB, fx testutil.Fixture, at time.Time, comment string, answers map[uint]int) {
	t.Helper()
	teaching, _, err := survey.EnsureTeaching(db, survey.TeachingKey{
		TeacherID:    fx.Teacher.ID,
		DisciplineID: fx.Discipline.ID,
		SemesterID:   fx.Semester.ID,
	})
	require.NoError(t, err)

	resp := models.SurveyResponse{TeachingID: teaching.ID, SubmittedAt: at.UTC(), Comment: comment}
	require.NoError(t, db.Create(&resp).Error)
	for qid, v := range answers {
		require.NoError(t, db.Create(&models.SurveyAnswer{ResponseID: resp.ID, QuestionID: qid, Value: v}).Error)
	}
}

func byCode(qs []QuestionStat) map[string]QuestionStat {
	out := make(map[string]QuestionStat, len(qs))
	for _, q := range qs {
		out[q.Code] = q
	}
	return out
}

func uintPtr(v uint) *uint { return &v }

func TestSummarizeSingleResponse(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.CreateFixture(t, db, "Computer Science", "Databases", "F. Moura")
	qs := testutil.Questions(t, db)

	_, err := survey.NewService(db).Submit(context.Background(), survey.Submission{
		CourseID:     fx.Course.ID,
		SemesterID:   fx.Semester.ID,
		DisciplineID: fx.Discipline.ID,
		TeacherID:    fx.Teacher.ID,
		Answers:      map[uint]int{qs[0].ID: 2, qs[1].ID: 0, qs[2].ID: 1},
	})
	require.NoError(t, err)

	filter := Filter{
		CourseID:     &fx.Course.ID,
		SemesterID:   &fx.Semester.ID,
		DisciplineID: &fx.Discipline.ID,
		TeacherID:    &fx.Teacher.ID,
	}

	t.Run("threshold 1 discloses averages", func(t *testing.T) {
		summary, err := NewService(db, 1).Summarize(context.Background(), filter)
		require.NoError(t, err)

		require.True(t, summary.Sufficient())
		assert.EqualValues(t, 1, summary.ResponseCount)
		assert.EqualValues(t, 1, summary.TeacherCount)
		require.Len(t, summary.Questions, 3)

		got := byCode(summary.Questions)
		assert.Equal(t, 2.0, got[qs[0].Code].Average)
		assert.Equal(t, 0.0, got[qs[1].Code].Average)
		assert.Equal(t, 1.0, got[qs[2].Code].Average)
	})

	t.Run("threshold 5 withholds averages", func(t *testing.T) {
		summary, err := NewService(db, 5).Summarize(context.Background(), filter)
		require.NoError(t, err)

		require.False(t, summary.Sufficient())
		assert.Equal(t, &InsufficientSample{Count: 1, Threshold: 5}, summary.Insufficient)
		assert.Empty(t, summary.Questions)
		assert.Empty(t, summary.Areas)
		assert.Empty(t, summary.Comments)
		assert.Empty(t, summary.Daily)
	})
}

func TestSummarizeAveragesTwoAnswers(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.CreateFixture(t, db, "History", "Ancient History", "G. Alves")
	qs := testutil.Questions(t, db)
	now := time.Now()

	addResponse(t, db, fx, now, "", map[uint]int{qs[0].ID: 2})
	addResponse(t, db, fx, now, "", map[uint]int{qs[0].ID: 0})

	summary, err := NewService(db, 1).Summarize(context.Background(), Filter{})
	require.NoError(t, err)

	require.Len(t, summary.Questions, 1)
	assert.Equal(t, 1.0, summary.Questions[0].Average)
	assert.EqualValues(t, 2, summary.Questions[0].Answers)
}

func TestSummarizeAreaIsMeanOfQuestionAverages(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.CreateFixture(t, db, "History", "Modern History", "H. Rocha")
	qs := testutil.Questions(t, db)
	p1, p2 := qs[0], qs[1]
	require.Equal(t, p1.Area, p2.Area)

	// p1 gets two answers averaging 2, p2 one answer of 0.
	// Mean of question averages is 1.0; mean of raw answers would be 4/3.
	addResponse(t, db, fx, time.Now(), "", map[uint]int{p1.ID: 2, p2.ID: 0})
	addResponse(t, db, fx, time.Now(), "", map[uint]int{p1.ID: 2})

	summary, err := NewService(db, 1).Summarize(context.Background(), Filter{})
	require.NoError(t, err)

	require.Len(t, summary.Areas, 1)
	assert.Equal(t, p1.Area, summary.Areas[0].Area)
	assert.Equal(t, 1.0, summary.Areas[0].Average)
	assert.Equal(t, 2, summary.Areas[0].Questions)
}

func TestSummarizeCommentsAndDaily(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.CreateFixture(t, db, "Biology", "Genetics", "I. Nunes")
	qs := testutil.Questions(t, db)
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	addResponse(t, db, fx, day1, "first", map[uint]int{qs[0].ID: 1})
	addResponse(t, db, fx, day1.Add(time.Hour), "", map[uint]int{qs[0].ID: 1})
	addResponse(t, db, fx, day2, "second", map[uint]int{qs[0].ID: 1})

	summary, err := NewService(db, 1).Summarize(context.Background(), Filter{})
	require.NoError(t, err)

	require.Len(t, summary.Comments, 2)
	assert.Equal(t, "second", summary.Comments[0].Text)
	assert.Equal(t, "first", summary.Comments[1].Text)
	assert.True(t, summary.Comments[0].SubmittedAt.Equal(day2))

	assert.Equal(t, []DailyCount{{Date: "2026-03-01", Count: 2}, {Date: "2026-03-02", Count: 1}}, summary.Daily)
}

func TestSummarizeFilters(t *testing.T) {
	db := testutil.OpenDB(t)
	a := testutil.CreateFixture(t, db, "Engineering", "Statics", "J. Melo")
	b := testutil.CreateFixture(t, db, "Engineering", "Dynamics", "K. Lopes")
	c := testutil.CreateFixture(t, db, "Economics", "Micro", "J. Melo")
	qs := testutil.Questions(t, db)
	now := time.Now()

	addResponse(t, db, a, now, "", map[uint]int{qs[0].ID: 2})
	addResponse(t, db, a, now, "", map[uint]int{qs[0].ID: 2})
	addResponse(t, db, b, now, "", map[uint]int{qs[0].ID: 0})
	addResponse(t, db, c, now, "", map[uint]int{qs[0].ID: 1})

	svc := NewService(db, 1)
	tests := []struct {
		name         string
		filter       Filter
		wantCount    int64
		wantTeachers int64
		wantAverage  float64
	}{
		{name: "no filter", filter: Filter{}, wantCount: 4, wantTeachers: 2, wantAverage: 1.25},
		{name: "course", filter: Filter{CourseID: &a.Course.ID}, wantCount: 3, wantTeachers: 2, wantAverage: 4.0 / 3.0},
		{name: "teacher", filter: Filter{TeacherID: &a.Teacher.ID}, wantCount: 3, wantTeachers: 1, wantAverage: 5.0 / 3.0},
		{name: "discipline", filter: Filter{DisciplineID: &b.Discipline.ID}, wantCount: 1, wantTeachers: 1, wantAverage: 0},
		{name: "course and teacher", filter: Filter{CourseID: &c.Course.ID, TeacherID: &a.Teacher.ID}, wantCount: 1, wantTeachers: 1, wantAverage: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := svc.Summarize(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, summary.ResponseCount)
			assert.Equal(t, tt.wantTeachers, summary.TeacherCount)
			require.Len(t, summary.Questions, 1)
			assert.InDelta(t, tt.wantAverage, summary.Questions[0].Average, 1e-9)
		})
	}

	t.Run("no match", func(t *testing.T) {
		summary, err := svc.Summarize(context.Background(), Filter{ClassGroupID: uintPtr(a.ClassGroup.ID)})
		require.NoError(t, err)
		assert.EqualValues(t, 0, summary.ResponseCount)
		assert.Equal(t, &InsufficientSample{Count: 0, Threshold: 1}, summary.Insufficient)
	})
}

func TestAreaAverages(t *testing.T) {
	areas := AreaAverages([]QuestionStat{
		{Code: "P1", Area: "Preparation", Average: 2},
		{Code: "M1", Area: "Methodology", Average: 0.5},
		{Code: "P2", Area: "Preparation", Average: 1},
		{Code: "M2", Area: "Methodology", Average: 1.5},
		{Code: "P3", Area: "Preparation", Average: 0},
	})

	assert.Equal(t, []AreaStat{
		{Area: "Preparation", Average: 1, Questions: 3},
		{Area: "Methodology", Average: 1, Questions: 2},
	}, areas)
	assert.Empty(t, AreaAverages(nil))
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(url.Values{"course_id": {"3"}, "teacher_id": {" 7 "}, "semester_id": {""}})
	require.NoError(t, err)
	assert.Equal(t, Filter{CourseID: uintPtr(3), TeacherID: uintPtr(7)}, f)
	assert.Equal(t, url.Values{"course_id": {"3"}, "teacher_id": {"7"}}, f.Query())

	for _, bad := range []string{"abc", "-1", "0", "1.5"} {
		_, err := ParseFilter(url.Values{"discipline_id": {bad}})
		var fErr *FilterError
		require.ErrorAs(t, err, &fErr, bad)
		assert.Equal(t, "discipline_id", fErr.Param)
	}
}

func TestDashboard(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.CreateFixture(t, db, "Music", "Harmony", "L. Pires")
	testutil.FirstOrCreate(t, db, models.Teacher{Name: "Not Evaluated"})
	qs := testutil.Questions(t, db)
	now := time.Now().UTC()

	addResponse(t, db, fx, now, "", map[uint]int{qs[0].ID: 2})
	addResponse(t, db, fx, now.AddDate(0, 0, -1), "", map[uint]int{qs[0].ID: 1})
	addResponse(t, db, fx, now.AddDate(0, 0, -60), "", map[uint]int{qs[0].ID: 0})

	d, err := NewService(db, 3).Dashboard(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 3, d.TotalResponses)
	assert.EqualValues(t, 1, d.TeachersEvaluated)
	assert.EqualValues(t, 2, d.Teachers)
	assert.EqualValues(t, 1, d.Courses)
	assert.EqualValues(t, 1, d.Disciplines)

	require.Len(t, d.Daily, DashboardDays)
	assert.Equal(t, now.Format(dateLayout), d.Daily[DashboardDays-1].Date)
	assert.EqualValues(t, 1, d.Daily[DashboardDays-1].Count)
	assert.EqualValues(t, 1, d.Daily[DashboardDays-2].Count)

	require.NotNil(t, d.Overview)
	assert.True(t, d.Overview.Sufficient())
	assert.Nil(t, d.Overview.Daily)

	t.Run("below threshold", func(t *testing.T) {
		d, err := NewService(db, 5).Dashboard(context.Background())
		require.NoError(t, err)

		assert.EqualValues(t, 3, d.TotalResponses)
		assert.EqualValues(t, 2, d.Teachers)
		assert.Zero(t, d.TeachersEvaluated)
		assert.Nil(t, d.Daily)
		require.NotNil(t, d.Overview)
		assert.False(t, d.Overview.Sufficient())
		assert.Empty(t, d.Overview.Areas)
	})
}
