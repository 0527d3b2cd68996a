package importer

import (
	"bytes"
	"context"
	"testing"

	"teachereval/internal/export"
	"teachereval/internal/models"
	"teachereval/internal/stats"
	"teachereval/internal/survey"
	"teachereval/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an xlsx with the given sheets; the first row of each is a header.
func workbook(t *testing.T, sheets map[string][][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &values))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestImportRejectsWorkbookWithoutKnownSheets(t *testing.T) {
	db := testutil.OpenDB(t)
	buf := workbook(t, map[string][][]string{"Other": {{"x"}}})

	_, err := New(db).Import(context.Background(), buf, Options{})
	assert.ErrorIs(t, err, ErrMissingSheets)
}

func TestImportRejectsGarbage(t *testing.T) {
	db := testutil.OpenDB(t)

	_, err := New(db).Import(context.Background(), bytes.NewBufferString("not a workbook"), Options{})
	assert.ErrorIs(t, err, ErrInvalidWorkbook)
	assert.True(t, IsInputError(err))
}

func TestImportReferenceDataAndTeachings(t *testing.T) {
	db := testutil.OpenDB(t)
	sheets := map[string][][]string{
		SheetCourses:     {{"Name"}, {"Law"}, {"Medicine"}, {""}},
		SheetTeachers:    {{"Name"}, {"B. Costa"}},
		SheetSchoolYears: {{"Name"}, {"2026"}},
		SheetDisciplines: {{"Course", "Discipline"}, {"Law", "Civil Law"}, {"Law", "Criminal Law"}, {"Medicine", "Anatomy"}},
		SheetTeachings: {
			{"Teacher", "Course", "Discipline", "Semester", "School Year", "Class Group"},
			{"B. Costa", "Law", "Civil Law", "1st Semester", "2026", ""},
			{"C. Prado", "Medicine", "Anatomy", "2nd Semester", "", "B - Night"},
		},
	}

	res, err := New(db).Import(context.Background(), workbook(t, sheets), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Courses)
	assert.Equal(t, 3, res.Disciplines)
	assert.Equal(t, 2, res.Teachers)
	assert.Equal(t, 0, res.Semesters, "seeded semesters are reused")
	assert.Equal(t, 1, res.SchoolYears)
	assert.Equal(t, 1, res.ClassGroups)
	assert.Equal(t, 2, res.Teachings)

	var teaching models.Teaching
	require.NoError(t, db.Preload("Teacher").Preload("Discipline").Preload("ClassGroup").
		Where("school_year_id IS NULL").First(&teaching).Error)
	assert.Equal(t, "C. Prado", teaching.Teacher.Name)
	assert.Equal(t, "Anatomy", teaching.Discipline.Name)
	require.NotNil(t, teaching.ClassGroup)
	assert.Equal(t, "B - Night", teaching.ClassGroup.Name)

	t.Run("reimport creates nothing", func(t *testing.T) {
		res, err := New(db).Import(context.Background(), workbook(t, sheets), Options{})
		require.NoError(t, err)
		assert.Equal(t, Result{Sheets: res.Sheets}, *res)
		assert.EqualValues(t, 2, testutil.Count(t, db, &models.Course{}))
		assert.EqualValues(t, 2, testutil.Count(t, db, &models.Teaching{}))
	})
}

func TestImportRollsBackOnBadRow(t *testing.T) {
	db := testutil.OpenDB(t)
	sheets := map[string][][]string{
		SheetDisciplines: {{"Course", "Discipline"}, {"Law", "Civil Law"}, {"Law", ""}},
	}

	_, err := New(db).Import(context.Background(), workbook(t, sheets), Options{})
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, SheetDisciplines, rowErr.Sheet)
	assert.Equal(t, 3, rowErr.Row)
	assert.True(t, IsInputError(err))

	assert.EqualValues(t, 0, testutil.Count(t, db, &models.Course{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &models.Discipline{}))
}

func TestImportWipe(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.CreateFixture(t, db, "Old Course", "Old Discipline", "Old Teacher")
	qs := testutil.Questions(t, db)
	_, err := survey.NewService(db).Submit(context.Background(), survey.Submission{
		CourseID:     fx.Course.ID,
		SemesterID:   fx.Semester.ID,
		DisciplineID: fx.Discipline.ID,
		TeacherID:    fx.Teacher.ID,
		Answers:      map[uint]int{qs[0].ID: 2},
	})
	require.NoError(t, err)

	sheets := map[string][][]string{SheetCourses: {{"Name"}, {"New Course"}}}
	_, err = New(db).Import(context.Background(), workbook(t, sheets), Options{Wipe: true})
	require.NoError(t, err)

	var courses []models.Course
	require.NoError(t, db.Find(&courses).Error)
	require.Len(t, courses, 1)
	assert.Equal(t, "New Course", courses[0].Name)
	assert.EqualValues(t, 0, testutil.Count(t, db, &models.SurveyResponse{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &models.SurveyAnswer{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &models.Teacher{}))
	assert.EqualValues(t, len(qs), testutil.Count(t, db, &models.SurveyQuestion{}), "questions survive a wipe")
}

func TestImportExportedResponses(t *testing.T) {
	src := testutil.OpenDB(t)
	a := testutil.CreateFixture(t, src, "Engineering", "Statics", "J. Melo")
	b := testutil.CreateFixture(t, src, "Engineering", "Dynamics", "J. Melo")
	qs := testutil.Questions(t, src)
	svc := survey.NewService(src)
	for _, fx := range []testutil.Fixture{a, a, b} {
		_, err := svc.Submit(context.Background(), survey.Submission{
			CourseID:     fx.Course.ID,
			SemesterID:   fx.Semester.ID,
			DisciplineID: fx.Discipline.ID,
			TeacherID:    fx.Teacher.ID,
			SchoolYearID: &fx.SchoolYear.ID,
			Answers:      map[uint]int{qs[0].ID: 1},
		})
		require.NoError(t, err)
	}

	st := stats.NewService(src, 1)
	questions, err := st.Questions(context.Background())
	require.NoError(t, err)
	rows, err := st.Responses(context.Background(), stats.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var buf bytes.Buffer
	require.NoError(t, export.WriteExcel(&buf, questions, rows))

	dst := testutil.OpenDB(t)
	res, err := New(dst).Import(context.Background(), &buf, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{export.ResponsesSheet}, res.Sheets)
	assert.Equal(t, 1, res.Courses)
	assert.Equal(t, 2, res.Disciplines)
	assert.Equal(t, 1, res.Teachers)
	assert.Equal(t, 1, res.SchoolYears)
	assert.Equal(t, 2, res.Teachings)
	assert.EqualValues(t, 0, testutil.Count(t, dst, &models.SurveyResponse{}), "responses are not imported")

	var teachings []models.Teaching
	require.NoError(t, dst.Preload("Discipline.Course").Preload("SchoolYear").Order("id").Find(&teachings).Error)
	require.Len(t, teachings, 2)
	assert.Equal(t, "Engineering", teachings[0].Discipline.Course.Name)
	require.NotNil(t, teachings[0].SchoolYear)
	assert.Equal(t, "2026", teachings[0].SchoolYear.Name)
}
