package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() CVDocument {
	return CVDocument{
		Name:    "Jane Developer",
		Title:   "Backend Engineer",
		Email:   "jane@example.com",
		Summary: "Builds reliable services.",
		Experience: []CVExperience{
			{Role: "Engineer", Company: "Acme", Period: "2020 - 2024", Highlights: []string{"Shipped things"}},
		},
		Education:   []CVEducation{{Degree: "BSc Computer Science", Institution: "State University", Period: "2016 - 2020"}},
		SkillGroups: []CVSkillGroup{{Category: "Backend", Skills: []string{"Go", "PostgreSQL"}}},
		Projects:    []CVProject{{Title: "Portfolio API", Description: "This very backend", Technologies: []string{"Go"}, Year: "2024"}},
		Languages:   []string{"English"},
	}
}

func TestCVRendererProducesPDF(t *testing.T) {
	renderer := NewCVRenderer()
	for _, theme := range []CVTheme{ThemeProfessional, ThemeModern, ThemeMinimal} {
		data, err := renderer.Render(sampleDocument(), theme)
		require.NoError(t, err)
		require.NotEmpty(t, data)
		assert.Equal(t, "%PDF", string(data[:4]))
	}
}

func TestCVRendererRequiresName(t *testing.T) {
	renderer := NewCVRenderer()
	_, err := renderer.Render(CVDocument{}, ThemeProfessional)
	require.Error(t, err)
}

func TestParseCVTheme(t *testing.T) {
	assert.Equal(t, ThemeModern, ParseCVTheme("Modern"))
	assert.Equal(t, ThemeMinimal, ParseCVTheme(" minimal "))
	assert.Equal(t, ThemeProfessional, ParseCVTheme(""))
	assert.Equal(t, ThemeProfessional, ParseCVTheme("unknown"))
}

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data, err := exporter.Render(Dataset{
		Headers: []string{"name", "email"},
		Rows: []map[string]string{
			{"name": "Alice", "email": "alice@example.com"},
			{"name": "Bob", "email": "bob@example.com"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "name,email\nAlice,alice@example.com\nBob,bob@example.com\n", string(data))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
