package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"go.uber.org/zap"
)

type noteService struct {
	repo   ports.NoteRepository
	logger *zap.Logger
}

func NewNoteService(repo ports.NoteRepository, logger *zap.Logger) ports.NoteService {
	return &noteService{repo: repo, logger: logger}
}

func (s *noteService) ListNotes(ctx context.Context, caseID int64) ([]domain.Note, error) {
	if caseID <= 0 {
		return nil, domain.NewValidationError("case_id", "is required")
	}
	return s.repo.ListNotes(ctx, caseID)
}

func (s *noteService) CreateNote(ctx context.Context, caseID int64, userID, content string) (*domain.Note, error) {
	if caseID <= 0 {
		return nil, domain.NewValidationError("case_id", "is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.NewValidationError("content", "is required")
	}
	note := &domain.Note{CaseID: caseID, UserID: userID, Content: content}
	if err := s.repo.CreateNote(ctx, note); err != nil {
		return nil, err
	}
	s.logger.Info("note created", zap.Int64("note_id", note.ID), zap.Int64("case_id", caseID))
	return note, nil
}

// UpdateNote rewrites a note's content. Only the author may change it; any
// other caller sees the note as missing.
func (s *noteService) UpdateNote(ctx context.Context, id int64, userID, content string) (*domain.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.NewValidationError("content", "is required")
	}
	note, err := s.repo.UpdateNote(ctx, id, userID, content)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, domain.NewNotFoundError("note", strconv.FormatInt(id, 10))
	}
	return note, nil
}

func (s *noteService) DeleteNote(ctx context.Context, id int64, userID string) error {
	if err := s.repo.DeleteNote(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info("note deleted", zap.Int64("note_id", id))
	return nil
}
