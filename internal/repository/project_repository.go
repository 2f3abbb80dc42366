package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/portfolio-api/internal/models"
)

const projectColumns = `id, title, description, long_description, technologies, features, github_url, live_url, duration, team_size, year, demo_video_url, is_featured, sort_order, created_at, updated_at`

const projectImageColumns = `id, project_id, filename, original_name, url, file_size, mime_type, is_primary, sort_order, created_at`

// ProjectRepository provides database access for projects and their images.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new instance of ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	const query = `INSERT INTO projects (id, title, description, long_description, technologies, features, github_url, live_url, duration, team_size, year, demo_video_url, is_featured, sort_order, created_at, updated_at) VALUES (:id, :title, :description, :long_description, :technologies, :features, :github_url, :live_url, :duration, :team_size, :year, :demo_video_url, :is_featured, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// FindByID returns a project by identifier without images.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	return &project, nil
}

// List returns projects matching the filter with the total count. Ordering is
// sort_order ascending then newest first, matching the public showcase.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	baseQuery := `FROM projects WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("is_featured = $%d", len(args)+1))
		args = append(args, *filter.Featured)
	}
	if filter.Year != "" {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY sort_order ASC, created_at DESC LIMIT %d OFFSET %d", projectColumns, baseQuery, perPage, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	return projects, total, nil
}

// Update replaces the mutable project fields.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE projects SET title = :title, description = :description, long_description = :long_description, technologies = :technologies, features = :features, github_url = :github_url, live_url = :live_url, duration = :duration, team_size = :team_size, year = :year, demo_video_url = :demo_video_url, is_featured = :is_featured, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// Delete removes a project row. Images cascade at the database level.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// Count returns the total number of projects.
func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM projects`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}

// CountFeatured returns the number of featured projects.
func (r *ProjectRepository) CountFeatured(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM projects WHERE is_featured = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count featured projects: %w", err)
	}
	return count, nil
}

// CreateImage persists an uploaded project image.
func (r *ProjectRepository) CreateImage(ctx context.Context, image *models.ProjectImage) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO project_images (id, project_id, filename, original_name, url, file_size, mime_type, is_primary, sort_order, created_at) VALUES (:id, :project_id, :filename, :original_name, :url, :file_size, :mime_type, :is_primary, :sort_order, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("create project image: %w", err)
	}
	return nil
}

// FindImage returns one image scoped to its project.
func (r *ProjectRepository) FindImage(ctx context.Context, projectID, imageID string) (*models.ProjectImage, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_images WHERE id = $1 AND project_id = $2 LIMIT 1`, projectImageColumns)
	var image models.ProjectImage
	if err := r.db.GetContext(ctx, &image, query, imageID, projectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project image: %w", err)
	}
	return &image, nil
}

// ListImages returns all images for a project ordered for display.
func (r *ProjectRepository) ListImages(ctx context.Context, projectID string) ([]models.ProjectImage, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_images WHERE project_id = $1 ORDER BY sort_order ASC, created_at ASC`, projectImageColumns)
	var images []models.ProjectImage
	if err := r.db.SelectContext(ctx, &images, query, projectID); err != nil {
		return nil, fmt.Errorf("list project images: %w", err)
	}
	return images, nil
}

// ListImagesForProjects returns images for a set of projects in one query.
func (r *ProjectRepository) ListImagesForProjects(ctx context.Context, projectIDs []string) ([]models.ProjectImage, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM project_images WHERE project_id IN (?) ORDER BY sort_order ASC, created_at ASC`, projectImageColumns), projectIDs)
	if err != nil {
		return nil, fmt.Errorf("build project images query: %w", err)
	}
	query = r.db.Rebind(query)
	var images []models.ProjectImage
	if err := r.db.SelectContext(ctx, &images, query, args...); err != nil {
		return nil, fmt.Errorf("list images for projects: %w", err)
	}
	return images, nil
}

// ClearPrimaryImage unsets the primary flag on every image of the project.
// Paired with SetPrimaryImage to keep at most one primary per project.
func (r *ProjectRepository) ClearPrimaryImage(ctx context.Context, projectID string) error {
	const query = `UPDATE project_images SET is_primary = FALSE WHERE project_id = $1 AND is_primary = TRUE`
	if _, err := r.db.ExecContext(ctx, query, projectID); err != nil {
		return fmt.Errorf("clear primary image: %w", err)
	}
	return nil
}

// SetPrimaryImage marks the given image as the project's primary.
func (r *ProjectRepository) SetPrimaryImage(ctx context.Context, projectID, imageID string) error {
	const query = `UPDATE project_images SET is_primary = TRUE WHERE id = $1 AND project_id = $2`
	if _, err := r.db.ExecContext(ctx, query, imageID, projectID); err != nil {
		return fmt.Errorf("set primary image: %w", err)
	}
	return nil
}

// DeleteImage removes an image row scoped to its project.
func (r *ProjectRepository) DeleteImage(ctx context.Context, projectID, imageID string) error {
	const query = `DELETE FROM project_images WHERE id = $1 AND project_id = $2`
	if _, err := r.db.ExecContext(ctx, query, imageID, projectID); err != nil {
		return fmt.Errorf("delete project image: %w", err)
	}
	return nil
}
