package service

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
	"github.com/noah-isme/portfolio-api/pkg/export"
)

const cvPreviewTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Name}} - CV Preview</title>
<style>
body { font-family: Georgia, serif; max-width: 820px; margin: 2rem auto; color: #222; }
h1 { margin-bottom: 0; }
h2 { border-bottom: 1px solid #1e3c6e; color: #1e3c6e; text-transform: uppercase; font-size: 1rem; }
.subtitle { color: #666; margin-top: 0.2rem; }
.contact { color: #888; font-size: 0.85rem; }
.entry { margin-bottom: 0.8rem; }
.meta { color: #666; font-style: italic; }
ul { margin: 0.3rem 0; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
{{if .Title}}<p class="subtitle">{{.Title}}</p>{{end}}
<p class="contact">{{.Email}}{{if .Phone}} | {{.Phone}}{{end}}{{if .Location}} | {{.Location}}{{end}}{{if .Website}} | {{.Website}}{{end}}</p>
{{if .Summary}}<h2>Summary</h2><p>{{.Summary}}</p>{{end}}
{{if .Experience}}<h2>Experience</h2>{{range .Experience}}<div class="entry">
<strong>{{.Role}}</strong><div class="meta">{{.Company}}{{if .Period}} ({{.Period}}){{end}}</div>
{{if .Highlights}}<ul>{{range .Highlights}}<li>{{.}}</li>{{end}}</ul>{{end}}
</div>{{end}}{{end}}
{{if .Education}}<h2>Education</h2>{{range .Education}}<div class="entry">
<strong>{{.Degree}}</strong><div class="meta">{{.Institution}}{{if .Period}} ({{.Period}}){{end}}</div>
</div>{{end}}{{end}}
{{if .SkillGroups}}<h2>Skills</h2><ul>{{range .SkillGroups}}<li><strong>{{.Category}}:</strong> {{range $i, $s := .Skills}}{{if $i}}, {{end}}{{$s}}{{end}}</li>{{end}}</ul>{{end}}
{{if .Projects}}<h2>Projects</h2>{{range .Projects}}<div class="entry">
<strong>{{.Title}}{{if .Year}} ({{.Year}}){{end}}</strong>
{{if .Description}}<p>{{.Description}}</p>{{end}}
</div>{{end}}{{end}}
</body>
</html>`

// CVService renders the stored resume data as PDF or an HTML preview.
type CVService struct {
	dataPath string
	renderer *export.CVRenderer
	logger   *zap.Logger
	preview  *template.Template

	mu  sync.RWMutex
	doc *export.CVDocument
}

// NewCVService constructs a CVService reading resume data from dataPath.
func NewCVService(dataPath string, logger *zap.Logger) *CVService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CVService{
		dataPath: dataPath,
		renderer: export.NewCVRenderer(),
		logger:   logger,
		preview:  template.Must(template.New("cv-preview").Parse(cvPreviewTemplate)),
	}
}

// Document loads and caches the resume data.
func (s *CVService) Document() (*export.CVDocument, error) {
	s.mu.RLock()
	doc := s.doc
	s.mu.RUnlock()
	if doc != nil {
		return doc, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		return s.doc, nil
	}

	v := viper.New()
	v.SetConfigFile(s.dataPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read cv data")
	}

	var loaded export.CVDocument
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to parse cv data")
	}
	if loaded.Name == "" {
		return nil, appErrors.Wrap(fmt.Errorf("cv data at %s has no name", s.dataPath),
			appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "cv data is incomplete")
	}

	s.doc = &loaded
	s.logger.Info("cv data loaded", zap.String("path", s.dataPath))
	return s.doc, nil
}

// RenderPDF builds the themed PDF and a download filename.
func (s *CVService) RenderPDF(theme export.CVTheme) ([]byte, string, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, "", err
	}

	data, err := s.renderer.Render(*doc, theme)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render cv pdf")
	}

	filename := fmt.Sprintf("cv_%s.pdf", theme)
	return data, filename, nil
}

// RenderPreview builds the HTML preview of the resume.
func (s *CVService) RenderPreview() ([]byte, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := s.preview.Execute(buf, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render cv preview")
	}
	return buf.Bytes(), nil
}
