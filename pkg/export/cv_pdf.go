package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// CVDocument carries the resume content rendered into the PDF.
type CVDocument struct {
	Name     string `mapstructure:"name"`
	Title    string `mapstructure:"title"`
	Email    string `mapstructure:"email"`
	Phone    string `mapstructure:"phone"`
	Location string `mapstructure:"location"`
	Website  string `mapstructure:"website"`
	Summary  string `mapstructure:"summary"`

	Experience     []CVExperience `mapstructure:"experience"`
	Education      []CVEducation  `mapstructure:"education"`
	SkillGroups    []CVSkillGroup `mapstructure:"skill_groups"`
	Projects       []CVProject    `mapstructure:"projects"`
	Certifications []string       `mapstructure:"certifications"`
	Languages      []string       `mapstructure:"languages"`
	Interests      []string       `mapstructure:"interests"`
}

// CVExperience is a single employment entry.
type CVExperience struct {
	Role       string   `mapstructure:"role"`
	Company    string   `mapstructure:"company"`
	Period     string   `mapstructure:"period"`
	Highlights []string `mapstructure:"highlights"`
}

// CVEducation is a single education entry.
type CVEducation struct {
	Degree      string `mapstructure:"degree"`
	Institution string `mapstructure:"institution"`
	Period      string `mapstructure:"period"`
}

// CVSkillGroup groups skills under a category label.
type CVSkillGroup struct {
	Category string   `mapstructure:"category"`
	Skills   []string `mapstructure:"skills"`
}

// CVProject is a showcased project entry.
type CVProject struct {
	Title        string   `mapstructure:"title"`
	Description  string   `mapstructure:"description"`
	Technologies []string `mapstructure:"technologies"`
	URL          string   `mapstructure:"url"`
	Year         string   `mapstructure:"year"`
}

// CVTheme selects the visual treatment of the rendered document.
type CVTheme string

const (
	ThemeProfessional CVTheme = "professional"
	ThemeModern       CVTheme = "modern"
	ThemeMinimal      CVTheme = "minimal"
)

// ParseCVTheme maps a query value onto a known theme, defaulting to professional.
func ParseCVTheme(raw string) CVTheme {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ThemeModern):
		return ThemeModern
	case string(ThemeMinimal):
		return ThemeMinimal
	default:
		return ThemeProfessional
	}
}

type themeStyle struct {
	headerFont string
	bodyFont   string
	accentR    int
	accentG    int
	accentB    int
	rule       bool
}

var themeStyles = map[CVTheme]themeStyle{
	ThemeProfessional: {headerFont: "Times", bodyFont: "Times", accentR: 30, accentG: 60, accentB: 110, rule: true},
	ThemeModern:       {headerFont: "Helvetica", bodyFont: "Helvetica", accentR: 0, accentG: 130, accentB: 120, rule: true},
	ThemeMinimal:      {headerFont: "Helvetica", bodyFont: "Helvetica", accentR: 40, accentG: 40, accentB: 40, rule: false},
}

// CVRenderer turns a CVDocument into PDF bytes.
type CVRenderer struct{}

// NewCVRenderer constructs a CV renderer.
func NewCVRenderer() *CVRenderer {
	return &CVRenderer{}
}

// Render builds the PDF for the document with the given theme.
func (r *CVRenderer) Render(doc CVDocument, theme CVTheme) ([]byte, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("cv document requires a name")
	}
	style, ok := themeStyles[theme]
	if !ok {
		style = themeStyles[ThemeProfessional]
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont(style.headerFont, "B", 22)
	pdf.SetTextColor(style.accentR, style.accentG, style.accentB)
	pdf.CellFormat(0, 10, doc.Name, "", 1, "C", false, 0, "")

	if doc.Title != "" {
		pdf.SetFont(style.bodyFont, "", 12)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 6, doc.Title, "", 1, "C", false, 0, "")
	}

	contact := joinNonEmpty([]string{doc.Email, doc.Phone, doc.Location, doc.Website}, "  |  ")
	if contact != "" {
		pdf.SetFont(style.bodyFont, "", 9)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, contact, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if doc.Summary != "" {
		r.sectionHeader(pdf, style, "Summary")
		pdf.SetFont(style.bodyFont, "", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 5, doc.Summary, "", "L", false)
		pdf.Ln(2)
	}

	if len(doc.Experience) > 0 {
		r.sectionHeader(pdf, style, "Experience")
		for _, exp := range doc.Experience {
			pdf.SetFont(style.bodyFont, "B", 11)
			pdf.SetTextColor(0, 0, 0)
			pdf.CellFormat(0, 6, exp.Role, "", 1, "L", false, 0, "")
			pdf.SetFont(style.bodyFont, "I", 10)
			pdf.SetTextColor(90, 90, 90)
			pdf.CellFormat(0, 5, joinNonEmpty([]string{exp.Company, exp.Period}, " — "), "", 1, "L", false, 0, "")
			pdf.SetFont(style.bodyFont, "", 10)
			pdf.SetTextColor(0, 0, 0)
			for _, h := range exp.Highlights {
				pdf.MultiCell(0, 5, "-  "+h, "", "L", false)
			}
			pdf.Ln(2)
		}
	}

	if len(doc.Education) > 0 {
		r.sectionHeader(pdf, style, "Education")
		for _, edu := range doc.Education {
			pdf.SetFont(style.bodyFont, "B", 11)
			pdf.SetTextColor(0, 0, 0)
			pdf.CellFormat(0, 6, edu.Degree, "", 1, "L", false, 0, "")
			pdf.SetFont(style.bodyFont, "I", 10)
			pdf.SetTextColor(90, 90, 90)
			pdf.CellFormat(0, 5, joinNonEmpty([]string{edu.Institution, edu.Period}, " — "), "", 1, "L", false, 0, "")
			pdf.Ln(1)
		}
		pdf.Ln(1)
	}

	if len(doc.SkillGroups) > 0 {
		r.sectionHeader(pdf, style, "Skills")
		pdf.SetTextColor(0, 0, 0)
		for _, group := range doc.SkillGroups {
			pdf.SetFont(style.bodyFont, "B", 10)
			pdf.CellFormat(42, 5, group.Category, "", 0, "L", false, 0, "")
			pdf.SetFont(style.bodyFont, "", 10)
			pdf.MultiCell(0, 5, strings.Join(group.Skills, ", "), "", "L", false)
		}
		pdf.Ln(2)
	}

	if len(doc.Projects) > 0 {
		r.sectionHeader(pdf, style, "Projects")
		for _, p := range doc.Projects {
			title := p.Title
			if p.Year != "" {
				title = fmt.Sprintf("%s (%s)", p.Title, p.Year)
			}
			pdf.SetFont(style.bodyFont, "B", 11)
			pdf.SetTextColor(0, 0, 0)
			pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
			pdf.SetFont(style.bodyFont, "", 10)
			if p.Description != "" {
				pdf.MultiCell(0, 5, p.Description, "", "L", false)
			}
			if len(p.Technologies) > 0 {
				pdf.SetFont(style.bodyFont, "I", 9)
				pdf.SetTextColor(90, 90, 90)
				pdf.MultiCell(0, 5, strings.Join(p.Technologies, ", "), "", "L", false)
			}
			pdf.Ln(1)
		}
	}

	if len(doc.Certifications) > 0 {
		r.sectionHeader(pdf, style, "Certifications")
		pdf.SetFont(style.bodyFont, "", 10)
		pdf.SetTextColor(0, 0, 0)
		for _, cert := range doc.Certifications {
			pdf.MultiCell(0, 5, "-  "+cert, "", "L", false)
		}
		pdf.Ln(1)
	}

	if len(doc.Languages) > 0 || len(doc.Interests) > 0 {
		r.sectionHeader(pdf, style, "Languages & Interests")
		pdf.SetFont(style.bodyFont, "", 10)
		pdf.SetTextColor(0, 0, 0)
		if len(doc.Languages) > 0 {
			pdf.MultiCell(0, 5, "Languages: "+strings.Join(doc.Languages, ", "), "", "L", false)
		}
		if len(doc.Interests) > 0 {
			pdf.MultiCell(0, 5, "Interests: "+strings.Join(doc.Interests, ", "), "", "L", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render cv pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *CVRenderer) sectionHeader(pdf *gofpdf.Fpdf, style themeStyle, title string) {
	pdf.SetFont(style.headerFont, "B", 13)
	pdf.SetTextColor(style.accentR, style.accentG, style.accentB)
	pdf.CellFormat(0, 8, strings.ToUpper(title), "", 1, "L", false, 0, "")
	if style.rule {
		x := pdf.GetX()
		y := pdf.GetY()
		pdf.SetDrawColor(style.accentR, style.accentG, style.accentB)
		pdf.Line(x, y, 195, y)
		pdf.Ln(2)
	}
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
