package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"

	"teachereval/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// render shows an HTML page. Every page gets a title and the admin flag for the header.
func render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Admin"] = c.GetBool(middleware.AdminKey)
	c.HTML(status, name, data)
}

// renderError shows the error page with a user-facing message.
func renderError(c *gin.Context, status int, message string) {
	render(c, status, "error.html", "Error", gin.H{"Error": message})
}

// internalError logs err and answers 500 without leaking details.
func internalError(c *gin.Context, err error, asPage bool) {
	log.Printf("Error: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	if asPage {
		renderError(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// wantsJSON reports whether the client sent or prefers JSON.
func wantsJSON(c *gin.Context) bool {
	if c.ContentType() == gin.MIMEJSON {
		return true
	}
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// bindingErrors turns validator errors into a field -> message map.
// Other binding errors (malformed JSON, wrong types) come back under "request"
// without the decoder's message, which names Go types.
func bindingErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": "is malformed or has fields of the wrong type"}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

// UseJSONFieldNames makes gin's validator report fields by their json tag.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// firstMessage flattens field errors into one sentence for HTML pages.
func firstMessage(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, strings.ReplaceAll(field, "_", " ")+" "+msg)
	}
	return strings.Join(parts, "; ")
}
