package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"teachereval/internal/survey"
	"teachereval/internal/web"

	"github.com/gin-gonic/gin"
)

type SurveyHandler struct {
	svc *survey.Service
}

func NewSurveyHandler(svc *survey.Service) *SurveyHandler {
	return &SurveyHandler{svc: svc}
}

// SubmitRequest is the survey form. HTML forms send answers as q_<question id>
// fields; JSON clients send an "answers" object keyed by question id.
type SubmitRequest struct {
	CourseID     uint                       `form:"course_id" json:"course_id" binding:"required"`
	SemesterID   uint                       `form:"semester_id" json:"semester_id" binding:"required"`
	DisciplineID uint                       `form:"discipline_id" json:"discipline_id" binding:"required"`
	TeacherID    uint                       `form:"teacher_id" json:"teacher_id" binding:"required"`
	SchoolYearID *uint                      `form:"school_year_id" json:"school_year_id"`
	ClassGroupID *uint                      `form:"class_group_id" json:"class_group_id"`
	Answers      map[string]json.RawMessage `form:"-" json:"answers"`
	Comment      string                     `form:"comment" json:"comment" binding:"max=2000"`
}

// Form renders the questionnaire
func (h *SurveyHandler) Form(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "")
}

func (h *SurveyHandler) renderForm(c *gin.Context, status int, errMsg string) {
	opts, err := h.svc.Options(c.Request.Context())
	if err != nil {
		internalError(c, err, true)
		return
	}
	render(c, status, "survey.html", "Teacher evaluation", gin.H{
		"Options": opts,
		"Areas":   web.GroupByArea(opts.Questions),
		"Error":   errMsg,
	})
}

// Options returns the reference lists the form is built from
func (h *SurveyHandler) Options(c *gin.Context) {
	opts, err := h.svc.Options(c.Request.Context())
	if err != nil {
		internalError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// Disciplines lists the disciplines of one course
func (h *SurveyHandler) Disciplines(c *gin.Context) {
	courseID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || courseID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	disciplines, err := h.svc.Disciplines(c.Request.Context(), uint(courseID))
	if err != nil {
		internalError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, disciplines)
}

// Submit stores one questionnaire
func (h *SurveyHandler) Submit(c *gin.Context) {
	asJSON := wantsJSON(c)

	var req SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		fields := bindingErrors(err)
		if asJSON {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission", "fields": fields})
			return
		}
		h.renderForm(c, http.StatusBadRequest, "Please fill in the required fields: "+firstMessage(fields))
		return
	}

	sub := survey.Submission{
		CourseID:     req.CourseID,
		SemesterID:   req.SemesterID,
		DisciplineID: req.DisciplineID,
		TeacherID:    req.TeacherID,
		SchoolYearID: optionalID(req.SchoolYearID),
		ClassGroupID: optionalID(req.ClassGroupID),
		Answers:      make(map[uint]int),
		Comment:      req.Comment,
	}
	if c.ContentType() == gin.MIMEJSON {
		jsonAnswers(req.Answers, sub.Answers)
	} else {
		formAnswers(c, sub.Answers)
	}

	resp, err := h.svc.Submit(c.Request.Context(), sub)
	if err != nil {
		if survey.IsValidation(err) {
			if asJSON {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			h.renderForm(c, http.StatusBadRequest, err.Error())
			return
		}
		internalError(c, err, !asJSON)
		return
	}

	if asJSON {
		c.JSON(http.StatusCreated, gin.H{
			"id":      resp.ID,
			"answers": len(resp.Answers),
		})
		return
	}
	render(c, http.StatusCreated, "thanks.html", "Thank you", gin.H{"Answers": len(resp.Answers)})
}

// formAnswers collects q_<id> fields. Values that are not integers are skipped
// like any other invalid answer.
func formAnswers(c *gin.Context, dst map[uint]int) {
	for key, values := range c.Request.PostForm {
		raw, ok := strings.CutPrefix(key, "q_")
		if !ok || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(values[0]))
		if err != nil {
			continue
		}
		dst[uint(id)] = v
	}
}

// jsonAnswers keeps the answers whose key is a question id and whose value is
// an integer. Strings, fractions and nulls are skipped like bad form values.
func jsonAnswers(raw map[string]json.RawMessage, dst map[uint]int) {
	for key, msg := range raw {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		var v int
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) || json.Unmarshal(msg, &v) != nil {
			continue
		}
		dst[uint(id)] = v
	}
}

// optionalID treats an empty select (bound as 0) as unset.
func optionalID(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}
