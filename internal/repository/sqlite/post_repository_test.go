package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestPostRepo(t *testing.T) (repository.PostRepository, *sql.DB) {
	t.Helper()
	db := openTestDB(t)
	repo := NewPostRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo, db
}

func createTestPost(t *testing.T, repo repository.PostRepository, at time.Time) *domain.Post {
	t.Helper()
	post := &domain.Post{
		ID:          uuid.NewString(),
		AuthorEmail: "author@uni.edu",
		AuthorName:  "Author",
		Body:        "looking for a robotics team",
		CreatedAt:   at,
	}
	require.NoError(t, repo.Create(context.Background(), post))
	return post
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	repo, _ := newTestPostRepo(t)
	ctx := context.Background()
	created := createTestPost(t, repo, time.Now().UTC())

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Body, got.Body)
	assert.Equal(t, "Author", got.AuthorName)
	assert.Equal(t, 0, got.LikeCount)
	assert.Empty(t, got.Comments)
	assert.Empty(t, got.LikedBy)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
}

func TestPostRepository_SetLike(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		toggles   []bool
		wantCount int
		wantLiked bool
	}{
		{name: "like once", toggles: []bool{true}, wantCount: 1, wantLiked: true},
		{name: "like twice is idempotent", toggles: []bool{true, true}, wantCount: 1, wantLiked: true},
		{name: "unlike never liked is a no-op", toggles: []bool{false}, wantCount: 0, wantLiked: false},
		{name: "like then unlike", toggles: []bool{true, false}, wantCount: 0, wantLiked: false},
		{name: "unlike twice after like", toggles: []bool{true, false, false}, wantCount: 0, wantLiked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newTestPostRepo(t)
			post := createTestPost(t, repo, time.Now().UTC())

			var count int
			var err error
			for _, liked := range tt.toggles {
				count, err = repo.SetLike(ctx, post.ID, "fan@uni.edu", liked, time.Now().UTC())
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCount, count)

			status, err := repo.LikeStatus(ctx, post.ID, "fan@uni.edu")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLiked, status.Liked)
			assert.Equal(t, tt.wantCount, status.LikeCount)

			got, err := repo.Get(ctx, post.ID)
			require.NoError(t, err)
			assert.Len(t, got.LikedBy, got.LikeCount)
		})
	}
}

func TestPostRepository_SetLike_KeepsOtherLikers(t *testing.T) {
	repo, _ := newTestPostRepo(t)
	ctx := context.Background()
	post := createTestPost(t, repo, time.Now().UTC())

	_, err := repo.SetLike(ctx, post.ID, "a@uni.edu", true, time.Now().UTC())
	require.NoError(t, err)
	_, err = repo.SetLike(ctx, post.ID, "b@uni.edu", true, time.Now().UTC())
	require.NoError(t, err)

	count, err := repo.SetLike(ctx, post.ID, "c@uni.edu", false, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := repo.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@uni.edu", "b@uni.edu"}, got.LikedBy)
}

func TestPostRepository_SetLike_Concurrent(t *testing.T) {
	repo, db := newTestPostRepo(t)
	ctx := context.Background()
	post := createTestPost(t, repo, time.Now().UTC())

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n*2)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity := fmt.Sprintf("user%d@uni.edu", i)
			// a duplicate like from the same identity must not count twice
			for j := 0; j < 2; j++ {
				if _, err := repo.SetLike(ctx, post.ID, identity, true, time.Now().UTC()); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	status, err := repo.LikeStatus(ctx, post.ID, "user0@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, n, status.LikeCount)

	var members int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM post_likes WHERE post_id = ?`, post.ID).Scan(&members))
	assert.Equal(t, n, members)
}

func TestPostRepository_AppendComment_PreservesOrder(t *testing.T) {
	repo, _ := newTestPostRepo(t)
	ctx := context.Background()
	post := createTestPost(t, repo, time.Now().UTC())

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		require.NoError(t, repo.AppendComment(ctx, post.ID, domain.Comment{
			AuthorEmail: "c@uni.edu",
			AuthorName:  "Commenter",
			Text:        text,
			CreatedAt:   time.Now().UTC(),
		}))
	}

	comments, err := repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	for i, text := range texts {
		assert.Equal(t, text, comments[i].Text)
		assert.Equal(t, "Commenter", comments[i].AuthorName)
	}
}

func TestPostRepository_AppendComment_Concurrent(t *testing.T) {
	repo, _ := newTestPostRepo(t)
	ctx := context.Background()
	post := createTestPost(t, repo, time.Now().UTC())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.AppendComment(ctx, post.ID, domain.Comment{
				AuthorEmail: fmt.Sprintf("u%d@uni.edu", i),
				AuthorName:  "U",
				Text:        fmt.Sprintf("comment %d", i),
				CreatedAt:   time.Now().UTC(),
			}))
		}(i)
	}
	wg.Wait()

	comments, err := repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, n)
}

func TestPostRepository_MutationsRefreshUpdatedAt(t *testing.T) {
	repo, _ := newTestPostRepo(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	post := createTestPost(t, repo, created)

	commentAt := created.Add(time.Minute)
	require.NoError(t, repo.AppendComment(ctx, post.ID, domain.Comment{
		AuthorEmail: "c@uni.edu", AuthorName: "C", Text: "hi", CreatedAt: commentAt,
	}))
	got, err := repo.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(commentAt), "updated_at = %v", got.UpdatedAt)

	likeAt := created.Add(2 * time.Minute)
	_, err = repo.SetLike(ctx, post.ID, "c@uni.edu", true, likeAt)
	require.NoError(t, err)
	got, err = repo.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(likeAt), "updated_at = %v", got.UpdatedAt)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestPostRepository_List_NewestFirst(t *testing.T) {
	repo, _ := newTestPostRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	p1 := createTestPost(t, repo, base)
	p2 := createTestPost(t, repo, base.Add(time.Second))
	p3 := createTestPost(t, repo, base.Add(2*time.Second))
	require.NoError(t, repo.AppendComment(ctx, p2.ID, domain.Comment{
		AuthorEmail: "c@uni.edu", AuthorName: "C", Text: "on p2", CreatedAt: base.Add(3 * time.Second),
	}))

	posts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{p3.ID, p2.ID, p1.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
	assert.Len(t, posts[1].Comments, 1)
	assert.Empty(t, posts[0].Comments)
}

func TestPostRepository_UnknownPost(t *testing.T) {
	repo, _ := newTestPostRepo(t)
	ctx := context.Background()
	missing := uuid.NewString()

	_, err := repo.Get(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.AppendComment(ctx, missing, domain.Comment{Text: "x", CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.ListComments(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.SetLike(ctx, missing, "a@uni.edu", true, time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.LikeStatus(ctx, missing, "a@uni.edu")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostRepository_StorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	ctx := context.Background()
	diskErr := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET updated_at = ? WHERE id = ?`)).
		WillReturnError(diskErr)
	mock.ExpectRollback()

	_, err = repo.SetLike(ctx, "p1", "a@uni.edu", true, time.Now().UTC())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, diskErr)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM posts`)).WillReturnError(diskErr)
	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, domain.ErrStorage)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotter_Snapshot(t *testing.T) {
	repo, db := newTestPostRepo(t)
	ctx := context.Background()
	createTestPost(t, repo, time.Now().UTC())

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, NewSnapshotter(db).Snapshot(ctx, dest))

	copyDB, err := Open(dest)
	require.NoError(t, err)
	defer copyDB.Close()

	var n int
	require.NoError(t, copyDB.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&n))
	assert.Equal(t, 1, n)
}
