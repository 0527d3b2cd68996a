package web

import (
	"bytes"
	"testing"

	"teachereval/internal/models"
	"teachereval/internal/survey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByArea(t *testing.T) {
	areas := GroupByArea([]models.SurveyQuestion{
		{Code: "P1", Area: "Preparation"},
		{Code: "M1", Area: "Methodology"},
		{Code: "P2", Area: "Preparation"},
	})

	require.Len(t, areas, 2)
	assert.Equal(t, "Preparation", areas[0].Name)
	assert.Len(t, areas[0].Questions, 2)
	assert.Equal(t, "Methodology", areas[1].Name)
	assert.Empty(t, GroupByArea(nil))
}

func TestTemplatesRender(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"survey.html", "thanks.html", "login.html", "admin.html", "error.html"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "survey.html", map[string]interface{}{
		"Title":   "Survey",
		"Options": survey.Options{Courses: []models.Course{{ID: 1, Name: "Law"}}},
		"Areas":   GroupByArea([]models.SurveyQuestion{{ID: 4, Code: "P1", Text: "Prepared", Area: "Preparation"}}),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `name="q_4" value="2"`)
	assert.Contains(t, buf.String(), "Partially")
	assert.Contains(t, buf.String(), `<option value="1">Law</option>`)
}
