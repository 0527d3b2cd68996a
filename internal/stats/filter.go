package stats

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Filter restricts aggregation to some dimensions. A nil field matches any value.
type Filter struct {
	CourseID     *uint `json:"course_id,omitempty"`
	SemesterID   *uint `json:"semester_id,omitempty"`
	DisciplineID *uint `json:"discipline_id,omitempty"`
	TeacherID    *uint `json:"teacher_id,omitempty"`
	SchoolYearID *uint `json:"school_year_id,omitempty"`
	ClassGroupID *uint `json:"class_group_id,omitempty"`
}

// FilterError reports a query parameter that is not a valid ID.
type FilterError struct {
	Param string
	Value string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Param, e.Value)
}

// ParseFilter reads the six dimension parameters from a query string.
// Empty parameters are left unset.
func ParseFilter(values url.Values) (Filter, error) {
	var f Filter
	fields := []struct {
		param string
		dst   **uint
	}{
		{"course_id", &f.CourseID},
		{"semester_id", &f.SemesterID},
		{"discipline_id", &f.DisciplineID},
		{"teacher_id", &f.TeacherID},
		{"school_year_id", &f.SchoolYearID},
		{"class_group_id", &f.ClassGroupID},
	}
	for _, fld := range fields {
		raw := strings.TrimSpace(values.Get(fld.param))
		if raw == "" {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return Filter{}, &FilterError{Param: fld.param, Value: raw}
		}
		id := uint(n)
		*fld.dst = &id
	}
	return f, nil
}

// Scope appends one predicate per set dimension. It expects the response
// query built by baseQuery, where t is teachings and d is disciplines.
func (f Filter) Scope(db *gorm.DB) *gorm.DB {
	predicates := []struct {
		column string
		value  *uint
	}{
		{"d.course_id", f.CourseID},
		{"t.semester_id", f.SemesterID},
		{"t.discipline_id", f.DisciplineID},
		{"t.teacher_id", f.TeacherID},
		{"t.school_year_id", f.SchoolYearID},
		{"t.class_group_id", f.ClassGroupID},
	}
	for _, p := range predicates {
		if p.value != nil {
			db = db.Where(p.column+" = ?", *p.value)
		}
	}
	return db
}

// Query encodes the filter back into query parameters
func (f Filter) Query() url.Values {
	v := make(url.Values)
	set := func(key string, id *uint) {
		if id != nil {
			v.Set(key, strconv.FormatUint(uint64(*id), 10))
		}
	}
	set("course_id", f.CourseID)
	set("semester_id", f.SemesterID)
	set("discipline_id", f.DisciplineID)
	set("teacher_id", f.TeacherID)
	set("school_year_id", f.SchoolYearID)
	set("class_group_id", f.ClassGroupID)
	return v
}
