// Package importer loads reference data and teaching assignments from a workbook.
//
// Recognised sheets (first row is a header, columns are fixed):
//
//	Courses      A=name
//	Teachers     A=name
//	Semesters    A=name
//	SchoolYears  A=name
//	ClassGroups  A=name
//	Disciplines  A=course  B=discipline
//	Teachings    A=teacher B=course C=discipline D=semester E=school year F=class group
//	Responses    the layout written by export.WriteExcel (dimension columns only)
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"teachereval/internal/export"
	"teachereval/internal/models"
	"teachereval/internal/survey"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SheetCourses     = "Courses"
	SheetTeachers    = "Teachers"
	SheetSemesters   = "Semesters"
	SheetSchoolYears = "SchoolYears"
	SheetClassGroups = "ClassGroups"
	SheetDisciplines = "Disciplines"
	SheetTeachings   = "Teachings"
)

var (
	ErrInvalidWorkbook = errors.New("file is not a readable xlsx workbook")
	ErrMissingSheets   = errors.New("workbook has none of the expected sheets: " + strings.Join(knownSheets, ", "))
)

var knownSheets = []string{
	SheetCourses, SheetTeachers, SheetSemesters, SheetSchoolYears, SheetClassGroups,
	SheetDisciplines, SheetTeachings, export.ResponsesSheet,
}

// RowError points at the sheet row that could not be imported.
type RowError struct {
	Sheet string
	Row   int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("sheet %s, row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// IsInputError reports whether err was caused by the uploaded workbook itself.
func IsInputError(err error) bool {
	var rowErr *RowError
	return errors.Is(err, ErrInvalidWorkbook) || errors.Is(err, ErrMissingSheets) || errors.As(err, &rowErr)
}

type Options struct {
	// Wipe deletes responses, teachings and reference data (but not questions) first.
	Wipe bool
}

// Result counts the rows newly created per entity.
type Result struct {
	Sheets      []string `json:"sheets"`
	Courses     int      `json:"courses"`
	Disciplines int      `json:"disciplines"`
	Teachers    int      `json:"teachers"`
	Semesters   int      `json:"semesters"`
	SchoolYears int      `json:"school_years"`
	ClassGroups int      `json:"class_groups"`
	Teachings   int      `json:"teachings"`
}

type Importer struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Importer {
	return &Importer{db: db}
}

// Import reads the workbook and upserts everything in one transaction.
// Nothing is written when any row fails.
func (im *Importer) Import(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}
	res := &Result{}
	for _, name := range knownSheets {
		if present[name] {
			res.Sheets = append(res.Sheets, name)
		}
	}
	if len(res.Sheets) == 0 {
		return nil, ErrMissingSheets
	}

	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Wipe {
			if err := Wipe(tx); err != nil {
				return err
			}
		}
		u := &upserter{tx: tx, res: res}
		for _, sheet := range res.Sheets {
			rows, err := f.GetRows(sheet)
			if err != nil {
				return fmt.Errorf("read sheet %s: %w", sheet, err)
			}
			if err := u.sheet(sheet, rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Import finished: %+v", *res)
	return res, nil
}

// Wipe deletes all survey data and reference entities, children first.
// Survey questions are kept.
func Wipe(tx *gorm.DB) error {
	for _, m := range []interface{}{
		&models.SurveyAnswer{},
		&models.SurveyResponse{},
		&models.Teaching{},
		&models.Discipline{},
		&models.Course{},
		&models.Teacher{},
		&models.Semester{},
		&models.SchoolYear{},
		&models.ClassGroup{},
	} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("wipe %T: %w", m, err)
		}
	}
	return nil
}

type upserter struct {
	tx  *gorm.DB
	res *Result
}

func (u *upserter) sheet(name string, rows [][]string) error {
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue // header
		}
		if err := u.row(name, row); err != nil {
			return &RowError{Sheet: name, Row: i + 1, Err: err}
		}
	}
	return nil
}

func (u *upserter) row(sheet string, row []string) error {
	switch sheet {
	case SheetCourses:
		_, err := u.course(cell(row, 0))
		return err
	case SheetTeachers:
		_, err := u.teacher(cell(row, 0))
		return err
	case SheetSemesters:
		_, err := u.semester(cell(row, 0))
		return err
	case SheetSchoolYears:
		_, err := u.schoolYear(cell(row, 0))
		return err
	case SheetClassGroups:
		_, err := u.classGroup(cell(row, 0))
		return err
	case SheetDisciplines:
		course, err := u.course(cell(row, 0))
		if err != nil {
			return err
		}
		_, err = u.discipline(course, cell(row, 1))
		return err
	case SheetTeachings:
		return u.teaching(cell(row, 0), cell(row, 1), cell(row, 2), cell(row, 3), cell(row, 4), cell(row, 5))
	case export.ResponsesSheet:
		return u.teaching(
			cell(row, export.ColTeacher),
			cell(row, export.ColCourse),
			cell(row, export.ColDiscipline),
			cell(row, export.ColSemester),
			cell(row, export.ColSchoolYear),
			cell(row, export.ColClassGroup),
		)
	}
	return nil
}

func (u *upserter) teaching(teacherName, courseName, disciplineName, semesterName, yearName, classGroupName string) error {
	teacher, err := u.teacher(teacherName)
	if err != nil {
		return err
	}
	course, err := u.course(courseName)
	if err != nil {
		return err
	}
	discipline, err := u.discipline(course, disciplineName)
	if err != nil {
		return err
	}
	semester, err := u.semester(semesterName)
	if err != nil {
		return err
	}
	key := survey.TeachingKey{TeacherID: teacher, DisciplineID: discipline, SemesterID: semester}
	if yearName != "" {
		id, err := u.schoolYear(yearName)
		if err != nil {
			return err
		}
		key.SchoolYearID = &id
	}
	if classGroupName != "" {
		id, err := u.classGroup(classGroupName)
		if err != nil {
			return err
		}
		key.ClassGroupID = &id
	}

	_, created, err := survey.EnsureTeaching(u.tx, key)
	if err != nil {
		return err
	}
	if created {
		u.res.Teachings++
	}
	return nil
}

func (u *upserter) course(name string) (uint, error) {
	var c models.Course
	created, err := u.byName(&c, "courses", name, func() interface{} { return &models.Course{Name: name} })
	if created {
		u.res.Courses++
	}
	return c.ID, err
}

func (u *upserter) teacher(name string) (uint, error) {
	var t models.Teacher
	created, err := u.byName(&t, "teachers", name, func() interface{} { return &models.Teacher{Name: name} })
	if created {
		u.res.Teachers++
	}
	return t.ID, err
}

func (u *upserter) semester(name string) (uint, error) {
	var s models.Semester
	created, err := u.byName(&s, "semesters", name, func() interface{} { return &models.Semester{Name: name} })
	if created {
		u.res.Semesters++
	}
	return s.ID, err
}

func (u *upserter) schoolYear(name string) (uint, error) {
	var y models.SchoolYear
	created, err := u.byName(&y, "school years", name, func() interface{} { return &models.SchoolYear{Name: name} })
	if created {
		u.res.SchoolYears++
	}
	return y.ID, err
}

func (u *upserter) classGroup(name string) (uint, error) {
	var g models.ClassGroup
	created, err := u.byName(&g, "class groups", name, func() interface{} { return &models.ClassGroup{Name: name} })
	if created {
		u.res.ClassGroups++
	}
	return g.ID, err
}

func (u *upserter) discipline(courseID uint, name string) (uint, error) {
	if name == "" {
		return 0, errors.New("discipline name is empty")
	}
	d := models.Discipline{CourseID: courseID, Name: name}
	res := u.tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&d)
	if res.Error != nil {
		return 0, fmt.Errorf("insert discipline %q: %w", name, res.Error)
	}
	if res.RowsAffected > 0 && d.ID != 0 {
		u.res.Disciplines++
		return d.ID, nil
	}
	var existing models.Discipline
	if err := u.tx.Where("course_id = ? AND name = ?", courseID, name).First(&existing).Error; err != nil {
		return 0, fmt.Errorf("find discipline %q: %w", name, err)
	}
	return existing.ID, nil
}

// byName inserts the row built by newRow unless one with the same name exists,
// then loads it into dst. It reports whether a row was created.
func (u *upserter) byName(dst interface{}, kind, name string, newRow func() interface{}) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%s name is empty", kind)
	}
	res := u.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(newRow())
	if res.Error != nil {
		return false, fmt.Errorf("insert %s %q: %w", kind, name, res.Error)
	}
	if err := u.tx.Where("name = ?", name).First(dst).Error; err != nil {
		return false, fmt.Errorf("find %s %q: %w", kind, name, err)
	}
	return res.RowsAffected > 0, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
