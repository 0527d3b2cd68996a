package export

import (
	"fmt"
	"io"
	"time"

	"teachereval/internal/stats"

	"github.com/go-pdf/fpdf"
)

const PDFContentType = "application/pdf"

const (
	pageWidth   = 190.0 // A4 width minus margins, mm
	lineHeight  = 6.0
	maxComments = 50
)

// WritePDF renders the aggregated summary with a trends section.
// An insufficient sample yields a short notice instead of numbers.
func WritePDF(w io.Writer, title string, summary *stats.Summary, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Generated "+generatedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if !summary.Sufficient() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Insufficient sample", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(pageWidth, lineHeight, fmt.Sprintf(
			"Only %d response(s) match the selected filters. Results are shown from %d responses onwards to protect respondent anonymity.",
			summary.Insufficient.Count, summary.Insufficient.Threshold), "", "L", false)
		return output(pdf, w)
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, lineHeight, fmt.Sprintf("Responses: %d    Teachers: %d", summary.ResponseCount, summary.TeacherCount), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	section(pdf, "Areas")
	tableHeader(pdf, []string{"Area", "Questions", "Average"}, []float64{120, 35, 35})
	pdf.SetFont("Helvetica", "", 10)
	for _, a := range summary.Areas {
		pdf.CellFormat(120, lineHeight, tr(a.Area), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, lineHeight, fmt.Sprintf("%d", a.Questions), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, lineHeight, fmt.Sprintf("%.2f", a.Average), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	section(pdf, "Questions")
	tableHeader(pdf, []string{"Code", "Question", "Answers", "Average"}, []float64{18, 132, 20, 20})
	pdf.SetFont("Helvetica", "", 9)
	for _, q := range summary.Questions {
		text := q.Text
		if r := []rune(text); len(r) > 85 {
			text = string(r[:82]) + "..."
		}
		pdf.CellFormat(18, lineHeight, tr(q.Code), "1", 0, "C", false, 0, "")
		pdf.CellFormat(132, lineHeight, tr(text), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, lineHeight, fmt.Sprintf("%d", q.Answers), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, lineHeight, fmt.Sprintf("%.2f", q.Average), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	trends := stats.ClassifyTrends(summary.Questions)
	section(pdf, "Trends")
	if trends.Fallback {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(pageWidth, 5, "No question reached the strength or weakness bounds; showing the highest and lowest averages.", "", "L", false)
	}
	trendList(pdf, tr, fmt.Sprintf("Strengths (average >= %.1f)", stats.StrengthMin), trends.Strengths)
	trendList(pdf, tr, fmt.Sprintf("Weaknesses (average < %.1f)", stats.WeaknessMax), trends.Weaknesses)
	pdf.Ln(2)

	if len(summary.Comments) > 0 {
		section(pdf, "Comments")
		pdf.SetFont("Helvetica", "", 9)
		for i, c := range summary.Comments {
			if i == maxComments {
				pdf.CellFormat(0, 5, fmt.Sprintf("... and %d more", len(summary.Comments)-maxComments), "", 1, "L", false, 0, "")
				break
			}
			pdf.MultiCell(pageWidth, 5, tr(fmt.Sprintf("%s  %s", c.SubmittedAt.Format("2006-01-02"), c.Text)), "B", "L", false)
		}
	}

	return output(pdf, w)
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func tableHeader(pdf *fpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], lineHeight, c, "1", ln, "C", true, 0, "")
	}
}

func trendList(pdf *fpdf.Fpdf, tr func(string) string, label string, qs []stats.QuestionStat) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, lineHeight, label, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if len(qs) == 0 {
		pdf.CellFormat(0, 5, "None", "", 1, "L", false, 0, "")
		return
	}
	for _, q := range qs {
		pdf.MultiCell(pageWidth, 5, tr(fmt.Sprintf("%s (%.2f) %s", q.Code, q.Average, q.Text)), "", "L", false)
	}
}

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
