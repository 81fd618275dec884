package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
	"github.com/campus-careers/placement-hub/pkg/retry"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

func quickRetrier() *retry.Retrier {
	return retry.New(retry.WithMaxAttempts(3), retry.WithInitialDelay(time.Millisecond))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := OpenFile(ctx, path, quickRetrier())
	require.NoError(t, err)

	u, err := user.NewStudent("U1", "Ann", "ann@uni.edu", "password", 2, "CS")
	require.NoError(t, err)
	require.NoError(t, fs.Users.Save(ctx, u))
	c, err := company.New("Acme")
	require.NoError(t, err)
	require.NoError(t, fs.Companies.Save(ctx, c))
	i := newInternship(t, "i1", "Backend", "Acme")
	require.NoError(t, i.Approve())
	require.NoError(t, fs.Internships.Save(ctx, i))
	a, err := application.New("a1", "U1", "i1")
	require.NoError(t, err)
	require.NoError(t, fs.Applications.Save(ctx, a))

	require.NoError(t, fs.Save(ctx))
	fs.Close()
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))

	again, err := OpenFile(ctx, path, quickRetrier())
	require.NoError(t, err)
	defer again.Close()

	gotUser, err := again.Users.FindByLoginID(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", gotUser.Name)
	assert.True(t, gotUser.CheckPassword("password"))

	_, err = again.Companies.FindByName(ctx, "acme")
	require.NoError(t, err)

	gotIntern, err := again.Internships.FindByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Backend", gotIntern.Title)
	assert.True(t, gotIntern.Window.Open.Equal(timeutil.Date(2024, time.June, 1)))

	apps, err := again.Applications.FindByStudent(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, application.StatusPending, apps[0].Status)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	fs, err := OpenFile(ctx, filepath.Join(t.TempDir(), "new.json"), quickRetrier())
	require.NoError(t, err)
	defer fs.Close()

	all, err := fs.Internships.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStore_OneProcessAtATime(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	first, err := OpenFile(ctx, path, quickRetrier())
	require.NoError(t, err)

	_, err = OpenFile(ctx, path, quickRetrier())
	require.ErrorIs(t, err, shared.ErrLockNotAcquired)
	assert.Equal(t, "Busy", shared.KindOf(err))

	first.Close()
	first.Close()

	second, err := OpenFile(ctx, path, quickRetrier())
	require.NoError(t, err)
	second.Close()
}

func TestFileStore_RemovesStaleLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path+".lock", []byte("1\n"), 0o600))
	old := time.Now().Add(-StaleLockAge - time.Minute)
	require.NoError(t, os.Chtimes(path+".lock", old, old))

	fs, err := OpenFile(ctx, path, quickRetrier())
	require.NoError(t, err)
	fs.Close()
}

func TestFileStore_SaveAfterClose(t *testing.T) {
	ctx := context.Background()
	fs, err := OpenFile(ctx, filepath.Join(t.TempDir(), "store.json"), quickRetrier())
	require.NoError(t, err)
	fs.Close()

	assert.ErrorIs(t, fs.Save(ctx), shared.ErrInvalidState)
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := OpenFile(ctx, path, quickRetrier())
	require.Error(t, err)

	_, statErr := os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(statErr))
}
