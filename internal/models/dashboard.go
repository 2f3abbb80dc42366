package models

import "time"

// DashboardStats aggregates the admin landing-page counters.
type DashboardStats struct {
	TotalProjects    int             `json:"total_projects"`
	FeaturedProjects int             `json:"featured_projects"`
	TotalContacts    int             `json:"total_contacts"`
	UnreadContacts   int             `json:"unread_contacts"`
	ReadContacts     int             `json:"read_contacts"`
	RepliedContacts  int             `json:"replied_contacts"`
	RecentContacts   []RecentContact `json:"recent_contacts"`

	// CacheHit is set on responses served from the stats cache. It is
	// never persisted as true.
	CacheHit bool `json:"cache_hit"`
}

// RecentContact is the trimmed inbox row shown on the dashboard.
type RecentContact struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Subject   string        `json:"subject"`
	Status    ContactStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// ServiceHealth describes one dependency in the system-health report.
type ServiceHealth struct {
	Status         string  `json:"status"`
	ResponseTimeMs float64 `json:"response_time_ms,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// SystemHealth is the detailed health report for the admin panel.
type SystemHealth struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services"`
}
