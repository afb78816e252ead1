package services

import (
	"context"
	"errors"
	"io"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/security"
	"github.com/hungnqdz/exam-management/app/storage"
)

const (
	maxSearchLength   = 100
	maxFullNameLength = 100
	maxAddressLength  = 255
	avatarURLPrefix   = "/Files/Avatar/"
)

var phonePattern = regexp.MustCompile(`^[0-9+() .-]{0,20}$`)

// AccountInput is used by admins creating or editing accounts and by
// teachers creating students.
type AccountInput struct {
	Username   string
	Password   string
	FullName   string
	Role       models.Role
	Gender     models.Gender
	Phone      string
	Address    string
	SubjectIDs []string
}

// ProfileInput holds the fields an account may change about itself.
type ProfileInput struct {
	FullName string
	Gender   models.Gender
	Phone    string
	Address  string
}

func (in *ProfileInput) normalize() error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.FullName == "" {
		return apperr.Validation("Full name is required.")
	}
	if utf8.RuneCountInString(in.FullName) > maxFullNameLength {
		return apperr.Validation("Full name must be at most 100 characters.")
	}
	if !phonePattern.MatchString(in.Phone) {
		return apperr.Validation("Phone number may contain only digits, spaces and + ( ) . -")
	}
	if utf8.RuneCountInString(in.Address) > maxAddressLength {
		return apperr.Validation("Address must be at most 255 characters.")
	}
	if in.Gender == "" {
		in.Gender = models.Other
	}
	return nil
}

func (in ProfileInput) apply(acc *models.Account) {
	acc.FullName = in.FullName
	acc.Gender = in.Gender
	acc.Phone = in.Phone
	acc.Address = in.Address
}

type AccountService struct {
	repo      Repository
	policy    *Policy
	hasher    *security.Hasher
	files     storage.Store
	maxAvatar int64
}

func NewAccountService(repo Repository, policy *Policy, hasher *security.Hasher, files storage.Store, maxAvatar int64) *AccountService {
	return &AccountService{repo: repo, policy: policy, hasher: hasher, files: files, maxAvatar: maxAvatar}
}

func normalizeSearch(search string) string {
	search = strings.TrimSpace(search)
	if utf8.RuneCountInString(search) > maxSearchLength {
		search = string([]rune(search)[:maxSearchLength])
	}
	return search
}

// List returns all accounts, or those matching search.
func (s *AccountService) List(ctx context.Context, actor *models.Actor, search string) ([]*models.Account, error) {
	if err := s.policy.Authorize(ctx, actor, ActionList, Resource{Type: ResourceAccount}); err != nil {
		return nil, err
	}
	if search = normalizeSearch(search); search != "" {
		return s.repo.SearchAccounts(ctx, search)
	}
	return s.repo.ListAccounts(ctx)
}

func (s *AccountService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Account, error) {
	if err := s.policy.Authorize(ctx, actor, ActionView, Resource{Type: ResourceAccount}); err != nil {
		return nil, err
	}
	return s.repo.GetAccountByID(ctx, id)
}

// Create adds a Teacher or Student account. The Admin role is never
// assignable here.
func (s *AccountService) Create(ctx context.Context, actor *models.Actor, in AccountInput) (*models.Account, error) {
	if err := s.policy.Authorize(ctx, actor, ActionCreate, Resource{Type: ResourceAccount}); err != nil {
		return nil, err
	}
	if in.Role == models.RoleAdmin {
		return nil, apperr.Forbid()
	}
	if in.Role != models.RoleTeacher && in.Role != models.RoleStudent {
		return nil, apperr.Validation("Role must be Teacher or Student.")
	}
	return s.create(ctx, in)
}

func (s *AccountService) create(ctx context.Context, in AccountInput) (*models.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateCredentials(in.Username, in.Password); err != nil {
		return nil, err
	}
	profile := ProfileInput{FullName: in.FullName, Gender: in.Gender, Phone: in.Phone, Address: in.Address}
	if err := profile.normalize(); err != nil {
		return nil, err
	}
	subjectIDs := dedupe(in.SubjectIDs)
	if err := checkSubjects(ctx, s.repo, subjectIDs); err != nil {
		return nil, err
	}
	hash, err := hashPassword(s.hasher, in.Password)
	if err != nil {
		return nil, err
	}

	acc := &models.Account{Username: in.Username, PasswordHash: hash, Role: in.Role}
	profile.apply(acc)
	if err := s.repo.CreateAccount(ctx, acc, subjectIDs); err != nil {
		return nil, err
	}
	return acc, nil
}

// Update edits profile fields and role. Nobody becomes Admin through an edit
// and an Admin's own role is fixed.
func (s *AccountService) Update(ctx context.Context, actor *models.Actor, id string, in AccountInput) (*models.Account, error) {
	if err := s.policy.Authorize(ctx, actor, ActionUpdate, Resource{Type: ResourceAccount}); err != nil {
		return nil, err
	}
	acc, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = acc.Role
	}
	if role != acc.Role {
		if role == models.RoleAdmin || acc.Role == models.RoleAdmin || acc.ID == actor.ID {
			return nil, apperr.Forbid()
		}
	}

	profile := ProfileInput{FullName: in.FullName, Gender: in.Gender, Phone: in.Phone, Address: in.Address}
	if err := profile.normalize(); err != nil {
		return nil, err
	}
	profile.apply(acc)
	acc.Role = role
	if err := s.repo.UpdateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Dashboard returns the system-wide counts shown to admins.
func (s *AccountService) Dashboard(ctx context.Context, actor *models.Actor) (*models.DashboardStats, error) {
	if err := s.policy.Authorize(ctx, actor, ActionList, Resource{Type: ResourceAccount}); err != nil {
		return nil, err
	}
	return s.repo.GetDashboardStats(ctx)
}

// Delete removes an account. Admins cannot delete themselves.
func (s *AccountService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if err := s.policy.Authorize(ctx, actor, ActionDelete, Resource{Type: ResourceAccount}); err != nil {
		return err
	}
	if id == actor.ID {
		return apperr.New(apperr.Forbidden, "You cannot delete your own account.")
	}
	acc, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.removeAvatar(ctx, acc.AvatarURL)
	return nil
}

// StudentsForTeacher lists the students sharing a subject with the actor.
// Admins see every student.
func (s *AccountService) StudentsForTeacher(ctx context.Context, actor *models.Actor, search string) ([]*models.Account, error) {
	var (
		students []*models.Account
		err      error
	)
	switch {
	case actor.IsAdmin():
		students, err = s.repo.ListAccounts(ctx)
	case actor.Is(models.RoleTeacher):
		students, err = s.repo.ListStudentsForTeacher(ctx, actor.ID)
	default:
		return nil, apperr.Forbid()
	}
	if err != nil {
		return nil, err
	}

	search = strings.ToLower(normalizeSearch(search))
	out := make([]*models.Account, 0, len(students))
	for _, st := range students {
		if st.Role != models.RoleStudent {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(st.Username), search) &&
			!strings.Contains(strings.ToLower(st.FullName), search) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// CreateStudent creates a Student enrolled in subjects the actor teaches.
func (s *AccountService) CreateStudent(ctx context.Context, actor *models.Actor, in AccountInput) (*models.Account, error) {
	in.SubjectIDs = dedupe(in.SubjectIDs)
	if len(in.SubjectIDs) == 0 {
		return nil, apperr.Validation("Select at least one subject.")
	}
	res := Resource{Type: ResourceStudent, SubjectIDs: in.SubjectIDs}
	if err := s.policy.Authorize(ctx, actor, ActionCreate, res); err != nil {
		return nil, err
	}
	in.Role = models.RoleStudent
	return s.create(ctx, in)
}

// student loads a Student account the actor may act on.
func (s *AccountService) student(ctx context.Context, actor *models.Actor, action Action, id string) (*models.Account, error) {
	if err := s.policy.Authorize(ctx, actor, action, Resource{Type: ResourceStudent, OwnerID: id}); err != nil {
		return nil, err
	}
	acc, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return nil, concealMissing(actor, err)
	}
	if acc.Role != models.RoleStudent {
		if actor.IsAdmin() {
			return nil, apperr.NotFoundf("student not found")
		}
		return nil, apperr.Forbid()
	}
	return acc, nil
}

func (s *AccountService) GetStudent(ctx context.Context, actor *models.Actor, id string) (*models.Account, error) {
	return s.student(ctx, actor, ActionView, id)
}

func (s *AccountService) UpdateStudent(ctx context.Context, actor *models.Actor, id string, in ProfileInput) (*models.Account, error) {
	acc, err := s.student(ctx, actor, ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	in.apply(acc)
	if err := s.repo.UpdateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *AccountService) DeleteStudent(ctx context.Context, actor *models.Actor, id string) error {
	acc, err := s.student(ctx, actor, ActionDelete, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAccount(ctx, acc.ID); err != nil {
		return err
	}
	s.removeAvatar(ctx, acc.AvatarURL)
	return nil
}

func (s *AccountService) Profile(ctx context.Context, actor *models.Actor) (*models.Account, error) {
	if actor == nil {
		return nil, apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
	}
	return s.repo.GetAccountByID(ctx, actor.ID)
}

// UpdateProfile edits the actor's own profile. The role is never touched.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *models.Actor, in ProfileInput) (*models.Account, error) {
	acc, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	in.apply(acc)
	if err := s.repo.UpdateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// UpdateAvatar stores a new avatar for the actor and returns its URL.
func (s *AccountService) UpdateAvatar(ctx context.Context, actor *models.Actor, up Upload) (string, error) {
	acc, err := s.Profile(ctx, actor)
	if err != nil {
		return "", err
	}
	file, err := avatarUploads.validate(up, s.maxAvatar)
	if err != nil {
		return "", err
	}

	name := "avatar_" + acc.ID + "_" + uuid.NewString() + file.ext
	if _, err := putUpload(ctx, s.files, storage.Avatars, name, file.Upload, s.maxAvatar); err != nil {
		return "", err
	}
	url := avatarURLPrefix + name
	if err := s.repo.UpdateAvatar(ctx, acc.ID, url); err != nil {
		s.discard(ctx, storage.Avatars, name)
		return "", err
	}
	s.removeAvatar(ctx, acc.AvatarURL)
	return url, nil
}

func (s *AccountService) removeAvatar(ctx context.Context, url string) {
	if name, ok := strings.CutPrefix(url, avatarURLPrefix); ok {
		s.discard(ctx, storage.Avatars, name)
	}
}

func (s *AccountService) discard(ctx context.Context, category storage.Category, name string) {
	discard(ctx, s.files, category, name)
}

func discard(ctx context.Context, files storage.Store, category storage.Category, name string) {
	if err := files.Delete(ctx, category, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("storage: failed to delete %s/%s: %v", category, name, err)
	}
}

// putUpload copies an upload into files, refusing anything larger than maxSize
// regardless of the size the client declared.
func putUpload(ctx context.Context, files storage.Store, category storage.Category, name string, up Upload, maxSize int64) (int64, error) {
	f, err := up.Open()
	if err != nil {
		return 0, apperr.Validation("The uploaded file could not be read.")
	}
	defer f.Close()

	n, err := files.Put(ctx, category, name, io.LimitReader(f, maxSize+1))
	if err != nil {
		return 0, apperr.Storage(err, "store upload")
	}
	if n > maxSize {
		discard(ctx, files, category, name)
		return 0, apperr.Validation("The uploaded file is too large.")
	}
	return n, nil
}
