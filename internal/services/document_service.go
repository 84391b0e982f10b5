package services

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
)

// DocumentService handles project document links
type DocumentService struct {
	documentRepo repository.DocumentRepository
	projectRepo  repository.ProjectRepository
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(documentRepo repository.DocumentRepository, projectRepo repository.ProjectRepository) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		projectRepo:  projectRepo,
	}
}

// CreateDocumentInput represents input for registering a document
type CreateDocumentInput struct {
	ProjectID string
	Name      string
	Type      models.DocumentType
	URL       string
}

// Create registers a document link. Any guild member may register documents.
func (s *DocumentService) Create(input CreateDocumentInput, actor Actor) (*models.Document, error) {
	project, err := s.projectRepo.FindByID(input.ProjectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	if project.GuildID != actor.GuildID {
		return nil, ErrProjectNotFound
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(name) > constants.MaxDocumentNameLength {
		return nil, tooLong("name", constants.MaxDocumentNameLength)
	}
	if input.Type == "" {
		input.Type = models.DocumentTypeOther
	}
	if !input.Type.Valid() {
		return nil, ErrInvalidDocumentType
	}
	link := strings.TrimSpace(input.URL)
	if !validURL(link) {
		return nil, ErrInvalidURL
	}

	document := &models.Document{
		ProjectID:    project.ID,
		Name:         name,
		Type:         input.Type,
		URL:          link,
		RegistrantID: actor.UserID,
	}
	if err := s.documentRepo.Create(document); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return s.Get(document.ID)
}

// Get returns a document
func (s *DocumentService) Get(documentID string) (*models.Document, error) {
	document, err := s.documentRepo.FindByID(documentID)
	if err != nil {
		return nil, notFound(err, ErrDocumentNotFound, "find document")
	}
	return document, nil
}

// List returns documents matching the filter, newest first
func (s *DocumentService) List(filter repository.DocumentFilter) ([]models.Document, error) {
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, ErrInvalidDocumentType
	}

	documents, err := s.documentRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return documents, nil
}

// Delete removes a document. Its registrant and project managers may delete it.
func (s *DocumentService) Delete(documentID string, actor Actor) error {
	document, err := s.Get(documentID)
	if err != nil {
		return err
	}
	project, err := s.projectRepo.FindByID(document.ProjectID)
	if err != nil {
		return notFound(err, ErrProjectNotFound, "find project")
	}
	if project.GuildID != actor.GuildID {
		return ErrDocumentNotFound
	}
	if document.RegistrantID != actor.UserID && !canManageProject(project, actor) {
		return ErrPermissionDenied
	}

	if err := s.documentRepo.Delete(documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// validURL accepts absolute http and https urls with a host
func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
