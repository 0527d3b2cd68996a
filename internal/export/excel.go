// Package export renders survey data as Excel workbooks and PDF reports.
package export

import (
	"fmt"
	"io"

	"teachereval/internal/models"
	"teachereval/internal/stats"

	"github.com/xuri/excelize/v2"
)

// ResponsesSheet is the sheet written by WriteExcel. The importer reads the
// same layout back.
const ResponsesSheet = "Responses"

// Column positions (0-based) of the Responses sheet.
const (
	ColResponseID = iota
	ColSubmittedAt
	ColCourse
	ColDiscipline
	ColTeacher
	ColSemester
	ColSchoolYear
	ColClassGroup
	ColFirstAnswer
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var baseHeaders = []string{"Response ID", "Submitted At", "Course", "Discipline", "Teacher", "Semester", "School Year", "Class Group"}

// WriteExcel writes one row per response with the raw answer of every question.
func WriteExcel(w io.Writer, questions []models.SurveyQuestion, rows []stats.ResponseRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResponsesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, 0, len(baseHeaders)+len(questions)+1)
	for _, h := range baseHeaders {
		header = append(header, h)
	}
	for _, q := range questions {
		header = append(header, q.Code)
	}
	header = append(header, "Comment")
	if err := f.SetSheetRow(ResponsesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		values := []interface{}{
			r.ID,
			r.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
			r.Course,
			r.Discipline,
			r.Teacher,
			r.Semester,
			r.SchoolYear,
			r.ClassGroup,
		}
		for _, q := range questions {
			if v, ok := r.Answers[q.Code]; ok {
				values = append(values, v)
			} else {
				values = append(values, nil)
			}
		}
		values = append(values, r.Comment)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResponsesSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(ResponsesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	return f.Write(w)
}
