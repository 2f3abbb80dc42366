package service

import (
	"bytes"
	"context"
	"database/sql"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/portfolio-api/internal/models"
	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
	"github.com/noah-isme/portfolio-api/pkg/storage"
)

type mockProjectRepo struct {
	projects map[string]*models.Project
	images   map[string][]models.ProjectImage
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{
		projects: make(map[string]*models.Project),
		images:   make(map[string][]models.ProjectImage),
	}
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	m.projects[project.ID] = project
	return nil
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := m.projects[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProjectRepo) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	var out []models.Project
	for _, p := range m.projects {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.Project) error {
	m.projects[project.ID] = project
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id string) error {
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepo) CreateImage(ctx context.Context, image *models.ProjectImage) error {
	m.images[image.ProjectID] = append(m.images[image.ProjectID], *image)
	return nil
}

func (m *mockProjectRepo) FindImage(ctx context.Context, projectID, imageID string) (*models.ProjectImage, error) {
	for _, img := range m.images[projectID] {
		if img.ID == imageID {
			return &img, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockProjectRepo) ListImages(ctx context.Context, projectID string) ([]models.ProjectImage, error) {
	return m.images[projectID], nil
}

func (m *mockProjectRepo) ListImagesForProjects(ctx context.Context, projectIDs []string) ([]models.ProjectImage, error) {
	var out []models.ProjectImage
	for _, id := range projectIDs {
		out = append(out, m.images[id]...)
	}
	return out, nil
}

func (m *mockProjectRepo) ClearPrimaryImage(ctx context.Context, projectID string) error {
	for i := range m.images[projectID] {
		m.images[projectID][i].IsPrimary = false
	}
	return nil
}

func (m *mockProjectRepo) SetPrimaryImage(ctx context.Context, projectID, imageID string) error {
	for i := range m.images[projectID] {
		if m.images[projectID][i].ID == imageID {
			m.images[projectID][i].IsPrimary = true
		}
	}
	return nil
}

func (m *mockProjectRepo) DeleteImage(ctx context.Context, projectID, imageID string) error {
	kept := m.images[projectID][:0]
	for _, img := range m.images[projectID] {
		if img.ID != imageID {
			kept = append(kept, img)
		}
	}
	m.images[projectID] = kept
	return nil
}

func newTestProjectService(t *testing.T, repo *mockProjectRepo) *ProjectService {
	t.Helper()
	store, err := storage.NewMediaStore(t.TempDir())
	require.NoError(t, err)
	return NewProjectService(repo, store, validator.New(), zap.NewNop(), UploadPolicy{
		MaxImageSize:     1 << 20,
		AllowedMIMETypes: []string{"image/png", "image/jpeg", "image/webp"},
		PublicBaseURL:    "/uploads",
	})
}

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

func multipartFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, header, err := req.FormFile("image")
	require.NoError(t, err)
	return header
}

func TestProjectCreateAndGet(t *testing.T) {
	repo := newMockProjectRepo()
	svc := newTestProjectService(t, repo)

	project, err := svc.Create(context.Background(), models.CreateProjectRequest{
		Title:        "Portfolio API",
		Description:  "Backend for the portfolio site",
		Technologies: []string{"Go", "PostgreSQL"},
		Year:         "2026",
	})
	require.NoError(t, err)
	require.NotEmpty(t, project.ID)

	got, err := svc.Get(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Portfolio API", got.Title)
	assert.NotNil(t, got.Images)
}

func TestProjectCreateValidatesYear(t *testing.T) {
	svc := newTestProjectService(t, newMockProjectRepo())

	_, err := svc.Create(context.Background(), models.CreateProjectRequest{
		Title:       "Bad year",
		Description: "x",
		Year:        "26",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadImageFirstBecomesPrimary(t *testing.T) {
	repo := newMockProjectRepo()
	svc := newTestProjectService(t, repo)

	project, err := svc.Create(context.Background(), models.CreateProjectRequest{
		Title: "P", Description: "d", Year: "2026",
	})
	require.NoError(t, err)

	image, err := svc.UploadImage(context.Background(), project.ID, multipartFile(t, "cover.png", pngHeader), false)
	require.NoError(t, err)
	assert.True(t, image.IsPrimary, "first image is promoted to primary")
	assert.Equal(t, "image/png", image.MimeType)
	assert.Contains(t, image.URL, "/uploads/")
}

func TestUploadImageRejectsDisallowedType(t *testing.T) {
	repo := newMockProjectRepo()
	svc := newTestProjectService(t, repo)

	project, err := svc.Create(context.Background(), models.CreateProjectRequest{
		Title: "P", Description: "d", Year: "2026",
	})
	require.NoError(t, err)

	// Content sniffing sees plain text regardless of the filename.
	_, err = svc.UploadImage(context.Background(), project.ID, multipartFile(t, "evil.png", []byte("#!/bin/sh\nrm -rf /")), false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadImageRejectsOversize(t *testing.T) {
	repo := newMockProjectRepo()
	svc := newTestProjectService(t, repo)
	svc.policy.MaxImageSize = 4

	project, err := svc.Create(context.Background(), models.CreateProjectRequest{
		Title: "P", Description: "d", Year: "2026",
	})
	require.NoError(t, err)

	_, err = svc.UploadImage(context.Background(), project.ID, multipartFile(t, "big.png", pngHeader), false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSetPrimaryImageDemotesOthers(t *testing.T) {
	repo := newMockProjectRepo()
	svc := newTestProjectService(t, repo)

	project, err := svc.Create(context.Background(), models.CreateProjectRequest{
		Title: "P", Description: "d", Year: "2026",
	})
	require.NoError(t, err)

	_, err = svc.UploadImage(context.Background(), project.ID, multipartFile(t, "a.png", pngHeader), false)
	require.NoError(t, err)
	second, err := svc.UploadImage(context.Background(), project.ID, multipartFile(t, "b.png", pngHeader), false)
	require.NoError(t, err)
	require.False(t, second.IsPrimary)

	require.NoError(t, svc.SetPrimaryImage(context.Background(), project.ID, second.ID))

	images, err := repo.ListImages(context.Background(), project.ID)
	require.NoError(t, err)
	var primaries int
	for _, img := range images {
		if img.IsPrimary {
			primaries++
			assert.Equal(t, second.ID, img.ID)
		}
	}
	assert.Equal(t, 1, primaries, "exactly one primary image at any time")
}

func TestDeletePrimaryPromotesRemaining(t *testing.T) {
	repo := newMockProjectRepo()
	svc := newTestProjectService(t, repo)

	project, err := svc.Create(context.Background(), models.CreateProjectRequest{
		Title: "P", Description: "d", Year: "2026",
	})
	require.NoError(t, err)

	first, err := svc.UploadImage(context.Background(), project.ID, multipartFile(t, "a.png", pngHeader), false)
	require.NoError(t, err)
	second, err := svc.UploadImage(context.Background(), project.ID, multipartFile(t, "b.png", pngHeader), false)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteImage(context.Background(), project.ID, first.ID))

	images, err := repo.ListImages(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, second.ID, images[0].ID)
	assert.True(t, images[0].IsPrimary)
}
