package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"teachereval/internal/config"
	"teachereval/internal/database"
	"teachereval/internal/models"
	"teachereval/internal/survey"

	"gorm.io/gorm"
)

var (
	courses = map[string][]string{
		"Computer Science": {"Algorithms", "Databases", "Operating Systems", "Computer Networks"},
		"Law":              {"Civil Law", "Criminal Law", "Constitutional Law"},
		"Nursing":          {"Anatomy", "Physiology", "Ethics"},
		"Business":         {"Accounting", "Marketing", "Microeconomics"},
	}
	teachers    = []string{"Ana Souza", "Bruno Costa", "Carla Prado", "Daniel Reis", "Elisa Dias", "Fábio Moura", "Gabriela Alves", "Hugo Rocha"}
	schoolYears = []string{"2025", "2026"}
	classGroups = []string{"A - Morning", "B - Afternoon", "C - Night"}
	comments    = []string{
		"Great classes, very clear explanations.",
		"Could use more practical examples.",
		"Assessments were fair.",
		"Sometimes hard to follow the pace.",
		"Always available to answer questions.",
	}
)

func main() {
	responses := flag.Int("responses", 300, "number of survey responses to generate")
	flag.Parse()

	cfg := config.Load()
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}
	if err := database.Seed(db); err != nil {
		log.Fatal(err)
	}

	fmt.Println("📚 Creating courses and disciplines...")
	var disciplines []models.Discipline
	for course, names := range courses {
		c := firstOrCreate(db, &models.Course{Name: course})
		for _, name := range names {
			disciplines = append(disciplines, *firstOrCreate(db, &models.Discipline{CourseID: c.ID, Name: name}))
		}
		fmt.Printf("  ✅ %s (%d disciplines)\n", course, len(names))
	}

	fmt.Println("\n👩‍🏫 Creating teachers...")
	var teacherIDs []uint
	for _, name := range teachers {
		teacherIDs = append(teacherIDs, firstOrCreate(db, &models.Teacher{Name: name}).ID)
	}
	fmt.Printf("  ✅ %d teachers\n", len(teacherIDs))

	var yearIDs, groupIDs []uint
	for _, name := range schoolYears {
		yearIDs = append(yearIDs, firstOrCreate(db, &models.SchoolYear{Name: name}).ID)
	}
	for _, name := range classGroups {
		groupIDs = append(groupIDs, firstOrCreate(db, &models.ClassGroup{Name: name}).ID)
	}

	var semesters []models.Semester
	if err := db.Find(&semesters).Error; err != nil {
		log.Fatal(err)
	}
	var questions []models.SurveyQuestion
	if err := db.Where("active = ?", true).Find(&questions).Error; err != nil {
		log.Fatal(err)
	}

	// Each discipline gets one teacher so results per teacher look plausible
	teacherOf := make(map[uint]uint, len(disciplines))
	for i, d := range disciplines {
		teacherOf[d.ID] = teacherIDs[i%len(teacherIDs)]
	}

	fmt.Printf("\n📝 Submitting %d responses...\n", *responses)
	svc := survey.NewService(db)
	created := 0
	for i := 0; i < *responses; i++ {
		d := disciplines[rand.Intn(len(disciplines))]
		// Some teachers score better than others
		bias := int(teacherOf[d.ID] % 3)

		answers := make(map[uint]int, len(questions))
		for _, q := range questions {
			answers[q.ID] = min(models.AnswerMax, rand.Intn(2)+bias/2+rand.Intn(2)*(bias%2))
		}
		sub := survey.Submission{
			CourseID:     d.CourseID,
			SemesterID:   semesters[rand.Intn(len(semesters))].ID,
			DisciplineID: d.ID,
			TeacherID:    teacherOf[d.ID],
			SchoolYearID: &yearIDs[rand.Intn(len(yearIDs))],
			ClassGroupID: &groupIDs[rand.Intn(len(groupIDs))],
			Answers:      answers,
		}
		if rand.Intn(4) == 0 {
			sub.Comment = comments[rand.Intn(len(comments))]
		}
		if _, err := svc.Submit(context.Background(), sub); err != nil {
			log.Printf("  ⚠️ response %d: %v", i+1, err)
			continue
		}
		created++
	}

	fmt.Println("\n🎉 Done!")
	fmt.Printf("  - Disciplines: %d\n", len(disciplines))
	fmt.Printf("  - Teachers: %d\n", len(teacherIDs))
	fmt.Printf("  - Responses: %d\n", created)
}

func firstOrCreate[T any](db *gorm.DB, v *T) *T {
	if err := db.Where(v).FirstOrCreate(v).Error; err != nil {
		log.Fatalf("create %T: %v", v, err)
	}
	return v
}
