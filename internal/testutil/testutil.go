// Package testutil provides a throwaway database and fixtures for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"teachereval/internal/database"
	"teachereval/internal/models"

	"gorm.io/gorm"
)

// OpenDB returns a migrated and seeded sqlite database living in t.TempDir().
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate(): %v", err)
	}
	if err := database.Seed(db); err != nil {
		t.Fatalf("Seed(): %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Fixture is a minimal set of reference rows a survey can be submitted against.
type Fixture struct {
	Course     models.Course
	Discipline models.Discipline
	Teacher    models.Teacher
	Semester   models.Semester
	SchoolYear models.SchoolYear
	ClassGroup models.ClassGroup
}

// CreateFixture inserts one course/discipline/teacher and picks the first seeded semester.
func CreateFixture(t *testing.T, db *gorm.DB, course, discipline, teacher string) Fixture {
	t.Helper()

	var f Fixture
	f.Course = FirstOrCreate(t, db, models.Course{Name: course})
	f.Discipline = FirstOrCreate(t, db, models.Discipline{CourseID: f.Course.ID, Name: discipline})
	f.Teacher = FirstOrCreate(t, db, models.Teacher{Name: teacher})
	f.SchoolYear = FirstOrCreate(t, db, models.SchoolYear{Name: "2026"})
	f.ClassGroup = FirstOrCreate(t, db, models.ClassGroup{Name: "A - Morning"})
	if err := db.Order("id").First(&f.Semester).Error; err != nil {
		t.Fatalf("CreateFixture(): semester: %v", err)
	}
	return f
}

// FirstOrCreate finds a row matching the non-zero fields of v or inserts it.
func FirstOrCreate[T any](t *testing.T, db *gorm.DB, v T) T {
	t.Helper()
	if err := db.Where(&v).FirstOrCreate(&v).Error; err != nil {
		t.Fatalf("FirstOrCreate(%T): %v", v, err)
	}
	return v
}

// Questions returns the active questions ordered by position.
func Questions(t *testing.T, db *gorm.DB) []models.SurveyQuestion {
	t.Helper()
	var qs []models.SurveyQuestion
	if err := db.Where("active = ?", true).Order("position").Find(&qs).Error; err != nil {
		t.Fatalf("Questions(): %v", err)
	}
	return qs
}

// Count returns the number of rows of model m.
func Count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("Count(%T): %v", m, err)
	}
	return n
}
