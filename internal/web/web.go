// Package web holds the embedded HTML templates.
package web

import (
	"embed"
	"fmt"
	"html/template"

	"teachereval/internal/models"
)

//go:embed templates/*.html
var files embed.FS

// AnswerLabels are the captions of the three answer values, indexed by value.
var AnswerLabels = []string{"No", "Partially", "Yes"}

// Area groups the questions of one area in form order.
type Area struct {
	Name      string
	Questions []models.SurveyQuestion
}

// GroupByArea keeps the order in which areas first appear in qs.
func GroupByArea(qs []models.SurveyQuestion) []Area {
	var areas []Area
	index := make(map[string]int)
	for _, q := range qs {
		i, ok := index[q.Area]
		if !ok {
			i = len(areas)
			index[q.Area] = i
			areas = append(areas, Area{Name: q.Area})
		}
		areas[i].Questions = append(areas[i].Questions, q)
	}
	return areas
}

// Templates parses every page template.
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"answerLabels": func() []string { return AnswerLabels },
	}).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
