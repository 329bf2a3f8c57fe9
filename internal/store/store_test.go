// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/repository"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "sitecms-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db, DialectSQLite))
	return db
}

// steppingClock returns a clock advancing one second per call.
func steppingClock() func() time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func testBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend(testDB(t), DialectSQLite)
	b.now = steppingClock()
	return b
}

var _ repository.Backend = (*Backend)(nil)

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	d, err = ParseDialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := testDB(t)

	tables := []string{model.TableVisitorEvents}
	for _, c := range model.Collections() {
		tables = append(tables, c.Name)
	}

	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}

	// Running again is a no-op.
	require.NoError(t, Migrate(db, DialectSQLite))
}

func TestBackend_InsertGet(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	row, err := b.Insert(ctx, model.CollectionSolutions, model.Row{
		"title":  "S",
		"points": `["a","b"]`,
	})
	require.NoError(t, err)

	id, _ := row[model.ColumnID].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, row[model.ColumnCreatedAt], row[model.ColumnUpdatedAt])
	assert.IsType(t, time.Time{}, row[model.ColumnCreatedAt])
	assert.Equal(t, `["a","b"]`, row["points"])

	got, err := b.Get(ctx, model.CollectionSolutions, id)
	require.NoError(t, err)
	assert.Equal(t, row, got)
}

func TestBackend_TypedColumns(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)
	published := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	row, err := b.Insert(ctx, model.CollectionNewsletters, model.Row{
		"title":        "N",
		"published":    true,
		"published_at": published,
	})
	require.NoError(t, err)
	assert.Equal(t, true, row["published"])
	assert.Equal(t, published, row["published_at"])

	row, err = b.Insert(ctx, model.CollectionResources, model.Row{"title": "R", "download_count": "7"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), row["download_count"])

	_, err = b.Insert(ctx, model.CollectionResources, model.Row{"title": "R", "download_count": "many"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestBackend_NotFound(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	_, err := b.Get(ctx, model.CollectionAdvisors, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = b.Update(ctx, model.CollectionAdvisors, "missing", model.Row{"name": "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = b.Delete(ctx, model.CollectionAdvisors, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = b.List(ctx, "users", model.Query{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBackend_UnknownColumn(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	_, err := b.Insert(ctx, model.CollectionAdvisors, model.Row{"name": "A", "name; DROP TABLE advisors": 1})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = b.List(ctx, model.CollectionAdvisors, model.Query{OrderBy: "password"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = b.Count(ctx, model.CollectionAdvisors, map[string]any{"nope": 1})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestBackend_UpdateMerges(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	row, err := b.Insert(ctx, model.CollectionAdvisors, model.Row{"name": "A", "title": "T"})
	require.NoError(t, err)
	id := row[model.ColumnID].(string)

	updated, err := b.Update(ctx, model.CollectionAdvisors, id, model.Row{"title": "CEO", "id": "other"})
	require.NoError(t, err)
	assert.Equal(t, id, updated[model.ColumnID])
	assert.Equal(t, "A", updated["name"])
	assert.Equal(t, "CEO", updated["title"])
	assert.Equal(t, row[model.ColumnCreatedAt], updated[model.ColumnCreatedAt])
	assert.True(t, updated[model.ColumnUpdatedAt].(time.Time).After(row[model.ColumnUpdatedAt].(time.Time)))
}

func TestBackend_ListAndCount(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	rows, err := b.List(ctx, model.CollectionNewsletters, model.Query{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	for _, n := range []struct {
		title     string
		published bool
	}{{"one", true}, {"two", false}, {"three", true}} {
		_, err := b.Insert(ctx, model.CollectionNewsletters, model.Row{"title": n.title, "published": n.published})
		require.NoError(t, err)
	}

	rows, err = b.List(ctx, model.CollectionNewsletters, model.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "three", rows[0]["title"])
	assert.Equal(t, "one", rows[2]["title"])

	rows, err = b.List(ctx, model.CollectionNewsletters, model.Query{
		Filters: map[string]any{"published": "true"},
		OrderBy: "title",
		Asc:     true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "one", rows[0]["title"])
	assert.Equal(t, "three", rows[1]["title"])

	rows, err = b.List(ctx, model.CollectionNewsletters, model.Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	n, err := b.Count(ctx, model.CollectionNewsletters, map[string]any{"published": false})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBackend_Upsert(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	first, inserted, err := b.Upsert(ctx, model.CollectionSubscribers, "email", model.Row{
		"email":  "ann@example.com",
		"active": true,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	second, inserted, err := b.Upsert(ctx, model.CollectionSubscribers, "email", model.Row{
		"email":  "ann@example.com",
		"active": false,
		"name":   "Ann",
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first[model.ColumnID], second[model.ColumnID])
	assert.Equal(t, first[model.ColumnCreatedAt], second[model.ColumnCreatedAt])
	assert.Equal(t, false, second["active"])
	assert.Equal(t, "Ann", second["name"])

	n, err := b.Count(ctx, model.CollectionSubscribers, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, _, err = b.Upsert(ctx, model.CollectionSubscribers, "email", model.Row{"active": true})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestBackend_ConstraintErrors(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	_, err := b.Insert(ctx, model.CollectionSubscribers, model.Row{"email": "dup@example.com"})
	require.NoError(t, err)
	_, err = b.Insert(ctx, model.CollectionSubscribers, model.Row{"email": "dup@example.com"})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = b.Insert(ctx, model.CollectionContactSubmissions, model.Row{"name": "A", "status": "lost"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestBackend_ClosedDatabaseIsUnavailable(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db, DialectSQLite))
	b := NewBackend(db, DialectSQLite)
	require.NoError(t, db.Close())

	_, err = b.List(ctx, model.CollectionAdvisors, model.Query{})
	assert.ErrorIs(t, err, model.ErrBackendUnavailable)

	err = b.Ping(ctx)
	assert.ErrorIs(t, err, model.ErrBackendUnavailable)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	require.NoError(t, Seed(ctx, b, logging.Discard()))
	require.NoError(t, Seed(ctx, b, logging.Discard()))

	for _, table := range []string{model.CollectionAdvisors, model.CollectionSolutions, model.CollectionResources} {
		n, err := b.Count(ctx, table, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, table)
	}
}

func TestRepositoriesOnSQLite(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)
	reg := repository.NewRegistry(b, logging.Discard())

	advisors, ok := reg.Collection(model.CollectionAdvisors)
	require.True(t, ok)

	created, err := advisors.Create(ctx, model.Fields{"name": "A", "title": "T", "description": "D", "imageUrl": "/a.jpg"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Equal(t, "/a.jpg", created.Fields.String("imageUrl"))

	err = advisors.Delete(ctx, "does-not-exist")
	assert.ErrorIs(t, err, model.ErrNotFound)

	for range 2 {
		_, _, err := reg.Subscribers.Subscribe(ctx, "ann@example.com", "")
		require.NoError(t, err)
	}
	_, err = reg.Subscribers.Unsubscribe(ctx, "ann@example.com")
	require.NoError(t, err)
	sub, outcome, err := reg.Subscribers.Subscribe(ctx, "ann@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, repository.Resubscribed, outcome)
	assert.True(t, sub.Fields.Bool("active"))
	assert.Nil(t, sub.Fields.Time("unsubscribedAt"))

	n, err := b.Count(ctx, model.CollectionSubscribers, map[string]any{"email": "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	news, err := reg.Newsletters.Create(ctx, model.Fields{"title": "Issue 1"})
	require.NoError(t, err)
	_, err = reg.Newsletters.Publish(ctx, news.ID)
	require.NoError(t, err)
	published, err := reg.Newsletters.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.NotNil(t, published[0].Fields.Time("publishedAt"))

	res, err := reg.Resources.Create(ctx, model.Fields{"title": "Guide"})
	require.NoError(t, err)
	res, err = reg.Resources.IncrementDownloadCount(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Fields.Int("downloadCount"))

	msg, err := reg.Chat.Create(ctx, repository.ChatInput{SessionID: "s1", Message: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, []any{}, msg.Fields.List("attachments"))

	counts := reg.Counts(ctx)
	assert.Equal(t, int64(1), counts[model.CollectionAdvisors])
	assert.Equal(t, int64(1), counts[model.CollectionChatMessages])
}
