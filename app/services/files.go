package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/storage"
)

// File is an authorized stored object ready to stream.
type File struct {
	Name        string
	ContentType string
	// Inline is true only for raster avatar images. Everything else is sent
	// as an attachment.
	Inline bool
	Body   io.ReadCloser
}

// FileService is the only way stored files leave the server.
type FileService struct {
	exams  ExamStore
	policy *Policy
	files  storage.Store
}

func NewFileService(repo Repository, policy *Policy, files storage.Store) *FileService {
	return &FileService{exams: repo, policy: policy, files: files}
}

// Open validates name, authorizes the actor for the category and opens the
// object. Invalid names are rejected before storage is touched.
func (s *FileService) Open(ctx context.Context, actor *models.Actor, category storage.Category, name string) (*File, error) {
	if err := storage.ValidateName(name); err != nil || !category.Valid() {
		return nil, apperr.Validation("Invalid file name.")
	}
	if err := s.authorize(ctx, actor, category, name); err != nil {
		return nil, err
	}

	body, err := s.files.Open(ctx, category, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFoundf("file not found")
		}
		return nil, apperr.Storage(err, "open file")
	}

	ct := ContentTypeFor(name)
	return &File{
		Name:        name,
		ContentType: ct,
		Inline:      category == storage.Avatars && strings.HasPrefix(ct, "image/"),
		Body:        body,
	}, nil
}

func (s *FileService) authorize(ctx context.Context, actor *models.Actor, category storage.Category, name string) error {
	switch category {
	case storage.Avatars:
		return s.policy.Authorize(ctx, actor, ActionView, Resource{Type: ResourceAvatar})
	case storage.Exports:
		return s.policy.Authorize(ctx, actor, ActionView, Resource{Type: ResourceExport})
	case storage.Submissions:
		if actor == nil {
			return apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
		}
		sub, err := s.exams.GetSubmissionByFileName(ctx, name)
		if err != nil {
			return concealMissing(actor, err)
		}
		res := Resource{Type: ResourceSubmission, SubjectID: sub.SubjectID, OwnerID: sub.StudentID}
		return s.policy.Authorize(ctx, actor, ActionView, res)
	}
	return apperr.Forbid()
}
