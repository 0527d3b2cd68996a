package database

import (
	"fmt"
	"log"

	"teachereval/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultQuestions is the questionnaire inserted into an empty database.
var DefaultQuestions = []models.SurveyQuestion{
	{Code: "P1", Area: "Preparation", Text: "The teacher presented the course plan and objectives at the start of the semester."},
	{Code: "P2", Area: "Preparation", Text: "Classes were well prepared and followed a clear structure."},
	{Code: "P3", Area: "Preparation", Text: "The teacher was punctual and used the class time fully."},
	{Code: "M1", Area: "Methodology", Text: "Explanations were clear and easy to follow."},
	{Code: "M2", Area: "Methodology", Text: "The teacher used examples and activities that helped learning."},
	{Code: "M3", Area: "Methodology", Text: "The teacher encouraged participation and questions."},
	{Code: "A1", Area: "Assessment", Text: "Assessment criteria were explained in advance."},
	{Code: "A2", Area: "Assessment", Text: "Tests and assignments matched the content taught."},
	{Code: "A3", Area: "Assessment", Text: "Results and feedback were returned in reasonable time."},
	{Code: "R1", Area: "Relationship", Text: "The teacher treated students with respect."},
	{Code: "R2", Area: "Relationship", Text: "The teacher was available to answer doubts outside class."},
}

var DefaultSemesters = []string{"1st Semester", "2nd Semester"}

// Seed inserts the questionnaire and default semesters when they are missing.
// It is safe to call on every startup.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.SurveyQuestion{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Println("Seeding survey questions...")

	return db.Transaction(func(tx *gorm.DB) error {
		questions := make([]models.SurveyQuestion, len(DefaultQuestions))
		for i, q := range DefaultQuestions {
			q.Position = i + 1
			q.Active = true
			questions[i] = q
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&questions).Error; err != nil {
			return fmt.Errorf("seed questions: %w", err)
		}

		for _, name := range DefaultSemesters {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Semester{Name: name}).Error; err != nil {
				return fmt.Errorf("seed semester %s: %w", name, err)
			}
		}
		return nil
	})
}
