package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/security"
	"github.com/hungnqdz/exam-management/app/services/servicestest"
	"github.com/hungnqdz/exam-management/app/storage"
)

// spyStore records every storage call made through it.
type spyStore struct {
	storage.Store
	mu    sync.Mutex
	calls []string
}

func (s *spyStore) record(op string, category storage.Category, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op+" "+string(category)+"/"+name)
}

func (s *spyStore) Put(ctx context.Context, category storage.Category, name string, r io.Reader) (int64, error) {
	s.record("put", category, name)
	return s.Store.Put(ctx, category, name, r)
}

func (s *spyStore) Open(ctx context.Context, category storage.Category, name string) (io.ReadCloser, error) {
	s.record("open", category, name)
	return s.Store.Open(ctx, category, name)
}

func (s *spyStore) Delete(ctx context.Context, category storage.Category, name string) error {
	s.record("delete", category, name)
	return s.Store.Delete(ctx, category, name)
}

func (s *spyStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// fixture wires every service against the fakes with a few accounts:
// admin, a Math teacher, a Literature teacher, and two Math students.
type fixture struct {
	repo     *servicestest.Repo
	files    *spyStore
	hasher   *security.Hasher
	policy   *Policy
	auth     *AuthService
	accounts *AccountService
	exams    *ExamService
	fileSvc  *FileService

	admin, mathTeacher, litTeacher, alice, bob *models.Actor
}

const testPassword = "secret-pass"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := servicestest.NewRepo()
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	files := &spyStore{Store: local}
	hasher, err := security.NewHasher(4)
	require.NoError(t, err)
	tokens, err := security.NewTokens([]byte(strings.Repeat("k", 32)), "test", "test-users")
	require.NoError(t, err)

	policy := NewPolicy(repo)
	f := &fixture{
		repo:     repo,
		files:    files,
		hasher:   hasher,
		policy:   policy,
		auth:     NewAuthService(repo, hasher, tokens),
		accounts: NewAccountService(repo, policy, hasher, files, 5<<20),
		exams:    NewExamService(repo, policy, files, 10<<20),
		fileSvc:  NewFileService(repo, policy, files),
	}
	f.admin = f.addAccount(t, "admin", models.RoleAdmin)
	f.mathTeacher = f.addAccount(t, "mteacher", models.RoleTeacher, "math")
	f.litTeacher = f.addAccount(t, "lteacher", models.RoleTeacher, "literature")
	f.alice = f.addAccount(t, "alice", models.RoleStudent, "math")
	f.bob = f.addAccount(t, "bob", models.RoleStudent, "math")
	return f
}

func (f *fixture) addAccount(t *testing.T, username string, role models.Role, subjects ...string) *models.Actor {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)
	acc := &models.Account{
		Username:     username,
		PasswordHash: hash,
		FullName:     strings.ToUpper(username[:1]) + username[1:],
		Role:         role,
		Gender:       models.Other,
	}
	require.NoError(t, f.repo.CreateAccount(context.Background(), acc, subjects))
	return models.ActorFromAccount(acc, "jti-"+username)
}

func (f *fixture) addExam(t *testing.T, subjectID string) *models.Exam {
	t.Helper()
	exam := &models.Exam{Title: "Exam " + subjectID, Content: "Answer all questions.",
		SubjectID: subjectID, CreatedBy: f.admin.ID}
	require.NoError(t, f.repo.CreateExam(context.Background(), exam))
	return exam
}

func memUpload(name, contentType string, data []byte) Upload {
	return Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(string(data))), nil
		},
	}
}

func pdfUpload() Upload {
	return memUpload("answer.pdf", "application/pdf", []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n"))
}
