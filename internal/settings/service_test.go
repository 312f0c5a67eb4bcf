package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
)

func TestServiceCachesUntilTTL(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{KeyInventoryStaleAfter: `"2h"`}}
	svc := newTestService(t, repo, nil, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	value, found, err := svc.Get(ctx, KeyInventoryStaleAfter)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `"2h"`, value)

	repo.values[KeyInventoryStaleAfter] = `"3h"`
	_, _, err = svc.Get(ctx, KeyInventoryStaleAfter)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls, "second read inside ttl is served from cache")

	now = now.Add(2 * time.Minute)
	value, _, err = svc.Get(ctx, KeyInventoryStaleAfter)
	require.NoError(t, err)
	assert.Equal(t, `"3h"`, value)
	assert.Equal(t, 2, repo.calls)
}

func TestServiceInvalidateForcesReload(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{"a": `"1h"`}}
	svc := newTestService(t, repo, nil, time.Hour)
	ctx := context.Background()

	_, _, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	repo.values["a"] = `"5h"`

	require.NoError(t, svc.Invalidate(ctx, "a"))
	assert.Equal(t, 5*time.Hour, svc.Duration(ctx, "a", time.Minute))
	assert.Equal(t, 2, repo.calls)

	require.NoError(t, svc.Invalidate(ctx))
	_, _, err = svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.calls)
}

func TestServiceInvalidateDuringReloadIsNotOverwritten(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{"a": `"1h"`}}
	svc := newTestService(t, repo, nil, time.Hour)
	ctx := context.Background()

	repo.onGet = func() {
		repo.onGet = nil
		repo.values["a"] = `"5h"`
		require.NoError(t, svc.Invalidate(ctx, "a"))
	}
	value, _, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `"1h"`, value, "the in-flight read returns what it loaded")

	assert.Equal(t, 5*time.Hour, svc.Duration(ctx, "a", time.Minute))
	assert.Equal(t, 2, repo.calls, "the value loaded before the invalidation was not cached")
}

func TestServiceMissingKeyIsCachedAsAbsent(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{}}
	svc := newTestService(t, repo, nil, time.Hour)

	_, found, err := svc.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	_, _, _ = svc.Get(context.Background(), "missing")
	assert.Equal(t, 1, repo.calls)
}

func TestServiceSharedVersionSkipsReloadWhenUnchanged(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{"a": `60`}}
	versions := &fakeVersions{}
	svc := newTestService(t, repo, versions, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, err := svc.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, _, err = svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls, "unchanged version extends the cached entry")

	versions.version = 7
	now = now.Add(2 * time.Minute)
	_, _, err = svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "a bumped version reloads")

	require.NoError(t, svc.Invalidate(ctx, "a"))
	assert.Equal(t, int64(8), versions.version)
}

func TestServiceInvalidateReportsVersionFailure(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeVersions{err: errors.New("redis down")}, time.Minute)
	err := svc.Invalidate(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestServiceGetPropagatesRepositoryErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection reset")}
	svc := newTestService(t, repo, nil, time.Minute)

	_, _, err := svc.Get(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.Equal(t, 90*time.Minute, svc.Duration(context.Background(), "a", 90*time.Minute))
}

func TestDurationFallsBackOnBadValues(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{
		"text":     `"45m"`,
		"seconds":  `1800`,
		"garbage":  `"soon"`,
		"negative": `-5`,
	}}
	svc := newTestService(t, repo, nil, time.Minute)
	ctx := context.Background()

	assert.Equal(t, 45*time.Minute, svc.Duration(ctx, "text", time.Hour))
	assert.Equal(t, 30*time.Minute, svc.Duration(ctx, "seconds", time.Hour))
	assert.Equal(t, time.Hour, svc.Duration(ctx, "garbage", time.Hour))
	assert.Equal(t, time.Hour, svc.Duration(ctx, "negative", time.Hour))
	assert.Equal(t, time.Hour, svc.Duration(ctx, "absent", time.Hour))
}

func TestRepositoryAgainstSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:settings_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Setting{}))

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.Setting{Key: "old", Value: `1`, UpdatedAt: old}).Error)
	require.NoError(t, db.Create(&models.Setting{Key: KeyInventoryStaleAfter, Value: `"4h"`, UpdatedAt: recent}).Error)

	repo := NewRepository(db)
	ctx := context.Background()

	row, err := repo.Get(ctx, KeyInventoryStaleAfter)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, `"4h"`, row.Value)

	row, err = repo.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, row)

	rows, err := repo.ListUpdatedSince(ctx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, KeyInventoryStaleAfter, rows[0].Key)
}

func newTestService(t *testing.T, repo Repository, versions versionStore, ttl time.Duration) *Service {
	t.Helper()
	params := ServiceParams{Repository: repo, TTL: ttl}
	if versions != nil {
		params.Versions = versions
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

type fakeRepo struct {
	values map[string]string
	err    error
	calls  int
	// onGet runs after the value is read, before Get returns.
	onGet func()
}

func (f *fakeRepo) Get(ctx context.Context, key string) (*models.Setting, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[key]
	if f.onGet != nil {
		f.onGet()
	}
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, Value: v}, nil
}

func (f *fakeRepo) ListUpdatedSince(ctx context.Context, since time.Time) ([]models.Setting, error) {
	return nil, f.err
}

type fakeVersions struct {
	version int64
	err     error
}

func (f *fakeVersions) Version(ctx context.Context, key string) (int64, error) {
	return f.version, f.err
}

func (f *fakeVersions) BumpVersion(ctx context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.version++
	return f.version, nil
}

func (f *fakeVersions) SettingsVersionKey() string { return "tp:settings:version" }
