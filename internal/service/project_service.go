package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/portfolio-api/internal/models"
	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
	"github.com/noah-isme/portfolio-api/pkg/storage"
)

type projectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	CreateImage(ctx context.Context, image *models.ProjectImage) error
	FindImage(ctx context.Context, projectID, imageID string) (*models.ProjectImage, error)
	ListImages(ctx context.Context, projectID string) ([]models.ProjectImage, error)
	ListImagesForProjects(ctx context.Context, projectIDs []string) ([]models.ProjectImage, error)
	ClearPrimaryImage(ctx context.Context, projectID string) error
	SetPrimaryImage(ctx context.Context, projectID, imageID string) error
	DeleteImage(ctx context.Context, projectID, imageID string) error
}

// UploadPolicy bounds uploaded project media.
type UploadPolicy struct {
	MaxImageSize     int64
	AllowedMIMETypes []string
	PublicBaseURL    string
}

// ProjectService manages the project showcase and its media assets.
type ProjectService struct {
	repo      projectRepository
	store     *storage.MediaStore
	validator *validator.Validate
	logger    *zap.Logger
	policy    UploadPolicy
	now       func() time.Time
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(repo projectRepository, store *storage.MediaStore, validate *validator.Validate, logger *zap.Logger, policy UploadPolicy) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if policy.MaxImageSize <= 0 {
		policy.MaxImageSize = 10 << 20
	}
	return &ProjectService{
		repo:      repo,
		store:     store,
		validator: validate,
		logger:    logger,
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new project.
func (s *ProjectService) Create(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	if err := s.validateYear(req.Year); err != nil {
		return nil, err
	}

	now := s.now()
	project := &models.Project{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Description:     req.Description,
		LongDescription: req.LongDescription,
		Technologies:    models.StringList(req.Technologies),
		Features:        models.StringList(req.Features),
		GithubURL:       req.GithubURL,
		LiveURL:         req.LiveURL,
		Duration:        req.Duration,
		TeamSize:        req.TeamSize,
		Year:            req.Year,
		DemoVideoURL:    req.DemoVideoURL,
		IsFeatured:      req.IsFeatured,
		SortOrder:       req.SortOrder,
		CreatedAt:       now,
		UpdatedAt:       now,
		Images:          []models.ProjectImage{},
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}

	s.logger.Info("project created", zap.String("project_id", project.ID), zap.String("title", project.Title))
	return project, nil
}

// List returns a showcase page with images attached to every project.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) (*models.ProjectList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 20
	}

	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}

	if len(projects) > 0 {
		ids := make([]string, len(projects))
		for i := range projects {
			ids[i] = projects[i].ID
		}
		images, err := s.repo.ListImagesForProjects(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project images")
		}
		byProject := make(map[string][]models.ProjectImage, len(projects))
		for _, img := range images {
			byProject[img.ProjectID] = append(byProject[img.ProjectID], img)
		}
		for i := range projects {
			projects[i].Images = byProject[projects[i].ID]
			if projects[i].Images == nil {
				projects[i].Images = []models.ProjectImage{}
			}
		}
	}

	totalPages := (total + filter.PerPage - 1) / filter.PerPage
	return &models.ProjectList{
		Projects:   projects,
		Total:      total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: totalPages,
	}, nil
}

// Get returns a single project with its images.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}
	images, err := s.repo.ListImages(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project images")
	}
	project.Images = images
	if project.Images == nil {
		project.Images = []models.ProjectImage{}
	}
	return project, nil
}

// Update replaces the project record.
func (s *ProjectService) Update(ctx context.Context, id string, req models.UpdateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	if err := s.validateYear(req.Year); err != nil {
		return nil, err
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}

	project.Title = req.Title
	project.Description = req.Description
	project.LongDescription = req.LongDescription
	project.Technologies = models.StringList(req.Technologies)
	project.Features = models.StringList(req.Features)
	project.GithubURL = req.GithubURL
	project.LiveURL = req.LiveURL
	project.Duration = req.Duration
	project.TeamSize = req.TeamSize
	project.Year = req.Year
	project.DemoVideoURL = req.DemoVideoURL
	project.IsFeatured = req.IsFeatured
	project.SortOrder = req.SortOrder
	project.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}
	return s.Get(ctx, id)
}

// Delete removes a project along with its stored media files.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.findProject(ctx, id); err != nil {
		return err
	}

	images, err := s.repo.ListImages(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project images")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}

	for _, img := range images {
		if err := s.store.Delete(img.Filename); err != nil {
			s.logger.Warn("failed to remove media file", zap.String("filename", img.Filename), zap.Error(err))
		}
	}
	return nil
}

// UploadImage validates, sniffs and stores an uploaded image. The first image
// of a project becomes primary automatically.
func (s *ProjectService) UploadImage(ctx context.Context, projectID string, header *multipart.FileHeader, isPrimary bool) (*models.ProjectImage, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if header.Size > s.policy.MaxImageSize {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("File exceeds the maximum size of %d bytes", s.policy.MaxImageSize))
	}

	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
	}
	defer file.Close()

	// The content type comes from the first bytes, never from the header
	// or the filename.
	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	mimeType := http.DetectContentType(sniff[:n])
	if !s.mimeAllowed(mimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("Unsupported image type %s", mimeType))
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewind upload")
	}

	existing, err := s.repo.ListImages(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project images")
	}

	imageID := uuid.NewString()
	storedName := imageID + strings.ToLower(filepath.Ext(header.Filename))
	if _, err := s.store.SaveStream(storedName, file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}

	if len(existing) == 0 {
		isPrimary = true
	}
	if isPrimary {
		if err := s.repo.ClearPrimaryImage(ctx, projectID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear primary image")
		}
	}

	image := &models.ProjectImage{
		ID:           imageID,
		ProjectID:    project.ID,
		Filename:     storedName,
		OriginalName: header.Filename,
		URL:          strings.TrimRight(s.policy.PublicBaseURL, "/") + "/" + storedName,
		FileSize:     header.Size,
		MimeType:     mimeType,
		IsPrimary:    isPrimary,
		SortOrder:    len(existing),
		CreatedAt:    s.now(),
	}

	if err := s.repo.CreateImage(ctx, image); err != nil {
		if rmErr := s.store.Delete(storedName); rmErr != nil {
			s.logger.Warn("failed to remove orphaned media file", zap.String("filename", storedName), zap.Error(rmErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image record")
	}

	s.logger.Info("project image uploaded",
		zap.String("project_id", projectID),
		zap.String("image_id", image.ID),
		zap.String("mime_type", mimeType),
		zap.Int64("size", header.Size))
	return image, nil
}

// SetPrimaryImage marks the image primary, demoting any current primary.
func (s *ProjectService) SetPrimaryImage(ctx context.Context, projectID, imageID string) error {
	if _, err := s.findImage(ctx, projectID, imageID); err != nil {
		return err
	}
	if err := s.repo.ClearPrimaryImage(ctx, projectID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear primary image")
	}
	if err := s.repo.SetPrimaryImage(ctx, projectID, imageID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set primary image")
	}
	return nil
}

// DeleteImage removes an image record and its stored file. When the primary
// image is removed the oldest remaining image is promoted.
func (s *ProjectService) DeleteImage(ctx context.Context, projectID, imageID string) error {
	image, err := s.findImage(ctx, projectID, imageID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteImage(ctx, projectID, imageID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete image record")
	}
	if err := s.store.Delete(image.Filename); err != nil {
		s.logger.Warn("failed to remove media file", zap.String("filename", image.Filename), zap.Error(err))
	}

	if image.IsPrimary {
		remaining, err := s.repo.ListImages(ctx, projectID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project images")
		}
		if len(remaining) > 0 {
			if err := s.repo.SetPrimaryImage(ctx, projectID, remaining[0].ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote image")
			}
		}
	}
	return nil
}

func (s *ProjectService) validateYear(raw string) error {
	year, err := strconv.Atoi(raw)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "Year must be a four digit number")
	}
	if year < 2000 || year > s.now().Year()+1 {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("Year must be between 2000 and %d", s.now().Year()+1))
	}
	return nil
}

func (s *ProjectService) mimeAllowed(mimeType string) bool {
	for _, allowed := range s.policy.AllowedMIMETypes {
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}

func (s *ProjectService) findProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch project")
	}
	return project, nil
}

func (s *ProjectService) findImage(ctx context.Context, projectID, imageID string) (*models.ProjectImage, error) {
	image, err := s.repo.FindImage(ctx, projectID, imageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Image not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch image")
	}
	return image, nil
}
