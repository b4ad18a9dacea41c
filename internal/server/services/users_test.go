package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/dbx"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/events"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbx.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", gormlogger.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbx.Close(db) })
	require.NoError(t, repomanager.NewGormRepositoryManager().RunMigrations(context.Background(), db))
	return db
}

func newUserService(t *testing.T) (*UserService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewUserService(newTestDB(t), repomanager.NewGormRepositoryManager(), pub, logging.Nop{}), pub
}

func envelope(name, email string) models.ChallengeSchema {
	return models.ChallengeSchema{User: &models.UserInput{Name: name, Email: email}}
}

// --- lifecycle ---

func TestCreate_GetRoundTrip(t *testing.T) {
	s, pub := newUserService(t)
	ctx := context.Background()

	created, err := s.Create(ctx, models.ChallengeSchema{User: &models.UserInput{
		Name: "Ana", Email: "a@x.com", Profile: models.Profile{"lang": "pt"},
	}})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserView{ID: created.ID, Name: "Ana", Email: "a@x.com", Profile: models.Profile{"lang": "pt"}}, got.Normalize())

	assert.Equal(t, []string{common.EventUserCreated}, pub.keys)
}

func TestCreate_DuplicateEmailConflicts(t *testing.T) {
	s, pub := newUserService(t)
	ctx := context.Background()

	first, err := s.Create(ctx, envelope("Ana", "a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.ID)

	_, err = s.Create(ctx, envelope("Bea", "a@x.com"))
	require.ErrorIs(t, err, common.ErrEmailRegistered)

	// case and surrounding blanks do not make an email new
	_, err = s.Create(ctx, envelope("Bea", "  A@X.COM "))
	require.ErrorIs(t, err, common.ErrEmailRegistered)

	list, err := s.List(ctx, "", DefaultPageSize, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []string{common.EventUserCreated}, pub.keys)
}

func TestCreate_FreshEmailsGetDistinctIDs(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, envelope("Ana", "a@x.com"))
	require.NoError(t, err)
	b, err := s.Create(ctx, envelope("Bea", "b@x.com"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bea", got.Name)
}

func TestCreate_MissingUser(t *testing.T) {
	s, _ := newUserService(t)

	_, err := s.Create(context.Background(), models.ChallengeSchema{})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestDelete_ThenGetIsNotFound(t *testing.T) {
	s, pub := newUserService(t)
	ctx := context.Background()

	u, err := s.Create(ctx, envelope("Ana", "a@x.com"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, u.ID))

	_, err = s.Get(ctx, u.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.ErrorIs(t, s.Delete(ctx, u.ID), common.ErrorNotFound)
	assert.Equal(t, []string{common.EventUserCreated, common.EventUserDeleted}, pub.keys)
}

func TestUpdate_ChangesOnlySuppliedFields(t *testing.T) {
	s, pub := newUserService(t)
	ctx := context.Background()

	u, err := s.Create(ctx, models.ChallengeSchema{User: &models.UserInput{
		Name: "Ana", Email: "a@x.com", Profile: models.Profile{"lang": "pt"},
	}})
	require.NoError(t, err)

	name := "X"
	updated, err := s.Update(ctx, u.ID, models.UserPatch{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "X", updated.Name)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.Equal(t, models.Profile{"lang": "pt"}, updated.Profile)
	assert.Equal(t, u.ID, updated.ID)

	got, err := s.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Normalize(), got.Normalize())

	assert.Equal(t, []string{common.EventUserCreated, common.EventUserUpdated}, pub.keys)
}

func TestUpdate_NotFoundAndEmailTaken(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, envelope("Ana", "a@x.com"))
	require.NoError(t, err)
	bea, err := s.Create(ctx, envelope("Bea", "b@x.com"))
	require.NoError(t, err)

	name := "X"
	_, err = s.Update(ctx, 999, models.UserPatch{Name: &name})
	require.ErrorIs(t, err, common.ErrorNotFound)

	taken := "A@x.com"
	_, err = s.Update(ctx, bea.ID, models.UserPatch{Email: &taken})
	require.ErrorIs(t, err, common.ErrEmailRegistered)

	got, err := s.Get(ctx, bea.ID)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", got.Email)
}

func TestGetByEmail_AbsentIsNotAnError(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	got, err := s.GetByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.Create(ctx, envelope("Ana", "a@x.com"))
	require.NoError(t, err)

	got, err = s.GetByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.Name)
}

func TestList_Pages(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	for _, n := range []string{"ana", "bea", "carla", "dora"} {
		_, err := s.Create(ctx, envelope(n, n+"@x.com"))
		require.NoError(t, err)
	}

	p1, err := s.List(ctx, "", 2, 0)
	require.NoError(t, err)
	p2, err := s.List(ctx, "", 2, 2)
	require.NoError(t, err)

	require.Len(t, p1, 2)
	require.Len(t, p2, 2)
	for _, a := range p1 {
		for _, b := range p2 {
			assert.NotEqual(t, a.ID, b.ID)
		}
	}

	filtered, err := s.List(ctx, "AR", DefaultPageSize, 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "carla", filtered[0].Name)
}

func TestList_RejectsBadPaging(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	for _, tc := range []struct{ size, start int }{{0, 0}, {-1, 0}, {MaxPageSize + 1, 0}, {10, -1}} {
		_, err := s.List(ctx, "", tc.size, tc.start)
		require.ErrorIs(t, err, common.ErrInvalidInput, "size=%d start=%d", tc.size, tc.start)
	}
}

func TestPublishFailure_DoesNotFailOperation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := NewUserService(newTestDB(t), repomanager.NewGormRepositoryManager(), pub, logging.Nop{})

	u, err := s.Create(context.Background(), envelope("Ana", "a@x.com"))
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
}

func TestNewUserService_NilPublisher(t *testing.T) {
	s := NewUserService(newTestDB(t), repomanager.NewGormRepositoryManager(), nil, logging.Nop{})
	assert.IsType(t, events.Nop{}, s.publisher)
}

// --- storage failures propagate wrapped ---

type failingRepo struct{ err error }

func (f failingRepo) List(context.Context, users.ListFilter) ([]models.User, error) { return nil, f.err }
func (f failingRepo) GetByID(context.Context, uint) (*models.User, error)           { return nil, f.err }
func (f failingRepo) GetByEmail(context.Context, string) (*models.User, error)      { return nil, f.err }
func (f failingRepo) Create(context.Context, *models.User) (*models.User, error)    { return nil, f.err }
func (f failingRepo) UpdatePartial(context.Context, uint, models.UserPatch) (*models.User, error) {
	return nil, f.err
}
func (f failingRepo) Delete(context.Context, uint) error { return f.err }

type fakeRepoManager struct{ repo users.Repository }

func (m fakeRepoManager) RunMigrations(context.Context, *gorm.DB) error { return nil }
func (m fakeRepoManager) Users(*gorm.DB) users.Repository               { return m.repo }

func TestStorageErrorsAreWrapped(t *testing.T) {
	s := NewUserService(newTestDB(t), fakeRepoManager{repo: failingRepo{err: errBoom{}}}, nil, logging.Nop{})
	ctx := context.Background()

	_, err := s.List(ctx, "", 10, 0)
	assertWrapped(t, err, `error listing users: .*boom`)

	_, err = s.Get(ctx, 1)
	assertWrapped(t, err, `error getting user: .*boom`)

	_, err = s.GetByEmail(ctx, "a@x.com")
	assertWrapped(t, err, `error searching user by email: .*boom`)

	_, err = s.Create(ctx, envelope("Ana", "a@x.com"))
	assertWrapped(t, err, `error searching user by email: .*boom`)

	_, err = s.Update(ctx, 1, models.UserPatch{})
	assertWrapped(t, err, `error updating user: .*boom`)

	err = s.Delete(ctx, 1)
	assertWrapped(t, err, `error deleting user: .*boom`)
}

func TestCreate_InsertConflictAfterPrecheck(t *testing.T) {
	repo := &raceRepo{}
	s := NewUserService(newTestDB(t), fakeRepoManager{repo: repo}, nil, logging.Nop{})

	_, err := s.Create(context.Background(), envelope("Ana", "a@x.com"))
	require.ErrorIs(t, err, common.ErrEmailRegistered)
	assert.True(t, repo.createCalled)
}

// raceRepo reports the email as free and then loses the insert, as happens
// when another request registers the same email in between.
type raceRepo struct {
	failingRepo
	createCalled bool
}

func (r *raceRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, common.ErrorNotFound
}

func (r *raceRepo) Create(context.Context, *models.User) (*models.User, error) {
	r.createCalled = true
	return nil, common.ErrEmailRegistered
}

func assertWrapped(t *testing.T, err error, pattern string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, errBoom{})
	if !regexp.MustCompile(pattern).MatchString(err.Error()) {
		t.Fatalf("expected %q, got %v", pattern, err)
	}
}
