package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores a JSON array of strings in a jsonb column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = StringList{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

// Project is a showcased portfolio project.
type Project struct {
	ID              string     `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	LongDescription string     `db:"long_description" json:"long_description,omitempty"`
	Technologies    StringList `db:"technologies" json:"technologies"`
	Features        StringList `db:"features" json:"features"`
	GithubURL       string     `db:"github_url" json:"github_url,omitempty"`
	LiveURL         string     `db:"live_url" json:"live_url,omitempty"`
	Duration        string     `db:"duration" json:"duration,omitempty"`
	TeamSize        string     `db:"team_size" json:"team_size,omitempty"`
	Year            string     `db:"year" json:"year"`
	DemoVideoURL    string     `db:"demo_video_url" json:"demo_video_url,omitempty"`
	IsFeatured      bool       `db:"is_featured" json:"is_featured"`
	SortOrder       int        `db:"sort_order" json:"sort_order"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	Images []ProjectImage `db:"-" json:"images"`
}

// ProjectImage is an uploaded media asset attached to a project.
type ProjectImage struct {
	ID           string    `db:"id" json:"id"`
	ProjectID    string    `db:"project_id" json:"project_id"`
	Filename     string    `db:"filename" json:"-"`
	OriginalName string    `db:"original_name" json:"original_name"`
	URL          string    `db:"url" json:"url"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	IsPrimary    bool      `db:"is_primary" json:"is_primary"`
	SortOrder    int       `db:"sort_order" json:"sort_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CreateProjectRequest is the admin payload for creating a project.
type CreateProjectRequest struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Description     string   `json:"description" validate:"required,max=500"`
	LongDescription string   `json:"long_description"`
	Technologies    []string `json:"technologies"`
	Features        []string `json:"features"`
	GithubURL       string   `json:"github_url" validate:"omitempty,url"`
	LiveURL         string   `json:"live_url" validate:"omitempty,url"`
	Duration        string   `json:"duration" validate:"max=100"`
	TeamSize        string   `json:"team_size" validate:"max=100"`
	Year            string   `json:"year" validate:"required,len=4,numeric"`
	DemoVideoURL    string   `json:"demo_video_url" validate:"omitempty,url"`
	IsFeatured      bool     `json:"is_featured"`
	SortOrder       int      `json:"sort_order"`
}

// UpdateProjectRequest mirrors the create payload; the whole record is replaced.
type UpdateProjectRequest = CreateProjectRequest

// ProjectFilter captures list criteria for the public showcase.
type ProjectFilter struct {
	Featured *bool
	Year     string
	Page     int
	PerPage  int
}

// ProjectList is a showcase page.
type ProjectList struct {
	Projects   []Project `json:"projects"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}
