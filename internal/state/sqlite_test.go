package state

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/antscope/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleIndex(path string) *ProjectIndex {
	return &ProjectIndex{
		Project: Project{Path: path, Name: "main", DefaultTarget: "dist"},
		Targets: []Target{
			{Name: "dist", Target: "dist", File: path, Line: 4, Depends: "compile", IsDefault: true},
			{Name: "lib.compile", Target: "compile", File: "lib.xml", Line: 2, Description: "Compile sources"},
			{Name: "ready", Target: "ready", File: path, Line: 3, IsExtensionPoint: true},
		},
		CustomElements: []CustomElement{
			{Name: "hello", Kind: "taskdef", ClassName: "com.acme.Hello", File: path, Line: 5},
			{Name: "broken", Namespace: "antlib:com.acme", Kind: "typedef", File: path, Line: 6, Error: "class not found"},
		},
		Duplicates: []Duplicate{
			{Name: "x.default", FirstFile: "a.xml", FirstLine: 2, SecondFile: "b.xml", SecondLine: 2},
		},
	}
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"index_runs", "projects", "targets", "custom_elements", "duplicates"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, table)
		rows.Close()
	}

	require.NoError(t, store.Migrate(), "migrating twice is a no-op")
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, store.SaveProjectIndex(ctx, "run", sampleIndex("build.xml")))
	_, err = store.SearchTargets(ctx, "*")
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		runErr error
		status RunStatus
		errMsg string
	}{
		{name: "completed", status: RunStatusCompleted},
		{name: "failed", runErr: errors.New("build.xml: no document element"), status: RunStatusFailed, errMsg: "build.xml: no document element"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)

			run, err := store.CreateRun(ctx, 2)
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)
			assert.Equal(t, RunStatusRunning, run.Status)

			require.NoError(t, store.CompleteRun(ctx, run.ID, tt.runErr))

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, 2, got.Roots)
			assert.NotNil(t, got.CompletedAt)
			assert.Equal(t, tt.errMsg, got.Error)
		})
	}

	store := setupTestStore(t)
	assert.Error(t, store.CompleteRun(ctx, "missing", nil))
	_, err := store.GetRun(ctx, "missing")
	assert.ErrorContains(t, err, "run not found")
}

func TestSQLiteStore_SaveAndSearch(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, store.SaveProjectIndex(ctx, run.ID, sampleIndex("build.xml")))
	require.NoError(t, store.SaveProjectIndex(ctx, run.ID, &ProjectIndex{
		Project: Project{Path: "other/build.xml", Name: "other"},
		Targets: []Target{{Name: "compile", Target: "compile", File: "other/build.xml", Line: 2}},
	}))

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "build.xml", projects[0].Path)
	assert.Equal(t, "dist", projects[0].DefaultTarget)
	assert.Equal(t, run.ID, projects[1].RunID)

	tests := []struct {
		pattern string
		want    []string
	}{
		{pattern: "compile", want: []string{"build.xml:lib.compile", "other/build.xml:compile"}},
		{pattern: "lib.*", want: []string{"build.xml:lib.compile"}},
		{pattern: "d?st", want: []string{"build.xml:dist"}},
		{pattern: "*", want: []string{"build.xml:dist", "build.xml:lib.compile", "build.xml:ready", "other/build.xml:compile"}},
		{pattern: "%", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			found, err := store.SearchTargets(ctx, tt.pattern)
			require.NoError(t, err)
			var got []string
			for _, f := range found {
				got = append(got, f.Project+":"+f.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	dist, err := store.SearchTargets(ctx, "dist")
	require.NoError(t, err)
	require.Len(t, dist, 1)
	assert.True(t, dist[0].IsDefault)
	assert.Equal(t, "compile", dist[0].Depends)

	elements, err := store.SearchCustomElements(ctx, "*")
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.Equal(t, "hello", elements[0].Name)
	assert.Equal(t, "antlib:com.acme", elements[1].Namespace)
	assert.Equal(t, "class not found", elements[1].Error)

	dups, err := store.ListDuplicates(ctx, "build.xml")
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "x.default", dups[0].Name)
}

func TestSQLiteStore_SaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, store.SaveProjectIndex(ctx, run.ID, sampleIndex("build.xml")))

	idx := sampleIndex("build.xml")
	idx.Targets = idx.Targets[:1]
	idx.CustomElements = nil
	idx.Duplicates = nil
	require.NoError(t, store.SaveProjectIndex(ctx, run.ID, idx))

	found, err := store.SearchTargets(ctx, "*")
	require.NoError(t, err)
	assert.Len(t, found, 1)
	elements, err := store.SearchCustomElements(ctx, "*")
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestSQLiteStore_SaveRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLiteStoreWithDB(db, testutil.NewTestLogger(t))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM targets").WithArgs("build.xml").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM custom_elements").WithArgs("build.xml").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM duplicates").WithArgs("build.xml").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM projects").WithArgs("build.xml").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO projects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO targets").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = store.SaveProjectIndex(context.Background(), "run-1", sampleIndex("build.xml"))
	assert.ErrorContains(t, err, "failed to save target dist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_QueryFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLiteStoreWithDB(db, nil)
	ctx := context.Background()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))
	assert.ErrorContains(t, store.SaveProjectIndex(ctx, "run-1", sampleIndex("build.xml")), "begin transaction")

	mock.ExpectQuery("SELECT (.+) FROM targets").WillReturnError(errors.New("no such table: targets"))
	_, err = store.SearchTargets(ctx, "x")
	assert.ErrorContains(t, err, "failed to search targets")

	mock.ExpectQuery("SELECT (.+) FROM projects").WillReturnRows(
		sqlmock.NewRows([]string{"path"}).AddRow("build.xml"))
	_, err = store.ListProjects(ctx)
	assert.ErrorContains(t, err, "failed to scan project")

	mock.ExpectExec("UPDATE index_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorContains(t, store.CompleteRun(ctx, "gone", nil), "run not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePattern(t *testing.T) {
	tests := map[string]string{
		"compile": "%compile%",
		"lib.*":   "lib.%",
		"a?c":     "a_c",
		"50%_x":   `%50\%\_x%`,
	}
	for in, want := range tests {
		assert.Equal(t, want, likePattern(in), in)
	}
}
