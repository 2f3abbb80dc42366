package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/portfolio-api/internal/models"
	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
	"github.com/noah-isme/portfolio-api/pkg/export"
)

type contactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	FindByID(ctx context.Context, id string) (*models.Contact, error)
	List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, int, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status models.ContactStatus) (int, error)
}

// ContactService manages the public contact form and the admin inbox.
type ContactService struct {
	repo      contactRepository
	validator *validator.Validate
	logger    *zap.Logger
	exporter  *export.CSVExporter
	now       func() time.Time
}

// NewContactService constructs a ContactService instance.
func NewContactService(repo contactRepository, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContactService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		exporter:  export.NewCSVExporter(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a public contact-form submission as unread.
func (s *ContactService) Submit(ctx context.Context, req models.CreateContactRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}

	now := s.now()
	contact := &models.Contact{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		Status:    models.ContactUnread,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		Referrer:  req.Referrer,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store contact")
	}

	s.logger.Info("contact submitted",
		zap.String("contact_id", contact.ID),
		zap.String("email", contact.Email),
		zap.String("subject", contact.Subject))
	return contact, nil
}

// List returns a filtered inbox page along with the global unread counter.
func (s *ContactService) List(ctx context.Context, filter models.ContactFilter) (*models.ContactList, error) {
	if filter.Status != "" && !models.ValidContactStatus(filter.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown contact status")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	contacts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
	}

	unread, err := s.repo.CountByStatus(ctx, models.ContactUnread)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread contacts")
	}

	totalPages := (total + filter.PerPage - 1) / filter.PerPage
	return &models.ContactList{
		Contacts:    contacts,
		Total:       total,
		Page:        filter.Page,
		PerPage:     filter.PerPage,
		TotalPages:  totalPages,
		UnreadCount: unread,
	}, nil
}

// Get returns a single submission. Reading an unread submission marks it read.
func (s *ContactService) Get(ctx context.Context, id string) (*models.Contact, error) {
	contact, err := s.findContact(ctx, id)
	if err != nil {
		return nil, err
	}

	if contact.Status == models.ContactUnread {
		contact.Status = models.ContactRead
		contact.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, contact); err != nil {
			s.logger.Warn("failed to mark contact read", zap.String("contact_id", id), zap.Error(err))
		}
	}
	return contact, nil
}

// Update transitions the inbox status. Moving to replied stamps replied_at
// once and keeps the original timestamp on repeat updates.
func (s *ContactService) Update(ctx context.Context, id string, req models.UpdateContactRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact update payload")
	}
	if !models.ValidContactStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown contact status")
	}

	contact, err := s.findContact(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	contact.Status = models.ContactStatus(req.Status)
	contact.UpdatedAt = now
	if req.ReplyMessage != "" {
		contact.ReplyMessage = req.ReplyMessage
	}
	if contact.Status == models.ContactReplied && contact.RepliedAt == nil {
		contact.RepliedAt = &now
	}

	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact")
	}
	return contact, nil
}

// Delete removes a submission.
func (s *ContactService) Delete(ctx context.Context, id string) error {
	if _, err := s.findContact(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contact")
	}
	return nil
}

// ExportCSV renders every submission matching the filter as a CSV document.
func (s *ContactService) ExportCSV(ctx context.Context, filter models.ContactFilter) ([]byte, string, error) {
	filter.Page = 1
	filter.PerPage = 100

	var rows []map[string]string
	for {
		contacts, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
		}
		for _, c := range contacts {
			repliedAt := ""
			if c.RepliedAt != nil {
				repliedAt = c.RepliedAt.Format(time.RFC3339)
			}
			rows = append(rows, map[string]string{
				"id":         c.ID,
				"name":       c.Name,
				"email":      c.Email,
				"subject":    c.Subject,
				"message":    c.Message,
				"status":     string(c.Status),
				"replied_at": repliedAt,
				"created_at": c.CreatedAt.Format(time.RFC3339),
			})
		}
		if len(rows) >= total || len(contacts) == 0 {
			break
		}
		filter.Page++
	}

	data, err := s.exporter.Render(export.Dataset{
		Headers: []string{"id", "name", "email", "subject", "message", "status", "replied_at", "created_at"},
		Rows:    rows,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}

	filename := fmt.Sprintf("contacts_%s.csv", s.now().Format("20060102_150405"))
	return data, filename, nil
}

func (s *ContactService) findContact(ctx context.Context, id string) (*models.Contact, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch contact")
	}
	return contact, nil
}
