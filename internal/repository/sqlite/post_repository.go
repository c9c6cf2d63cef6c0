package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/repository"
)

const createPostTables = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	author_email TEXT NOT NULL,
	author_name TEXT NOT NULL,
	body TEXT NOT NULL,
	like_count INTEGER NOT NULL DEFAULT 0 CHECK (like_count >= 0),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);

CREATE TABLE IF NOT EXISTS post_comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id TEXT NOT NULL,
	author_email TEXT NOT NULL,
	author_name TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_post_comments_post_id ON post_comments(post_id);

CREATE TABLE IF NOT EXISTS post_likes (
	post_id TEXT NOT NULL,
	identity TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (post_id, identity),
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);
`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostTables); err != nil {
		return fmt.Errorf("create post tables: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.CreatedAt

	_, err := r.db.ExecContext(ctx, `
INSERT INTO posts (id, author_email, author_name, body, like_count, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?)`,
		post.ID,
		post.AuthorEmail,
		post.AuthorName,
		post.Body,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return storageErr("insert post", err)
	}
	post.LikeCount = 0
	post.Comments = []domain.Comment{}
	post.LikedBy = []string{}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, author_email, author_name, body, like_count, created_at, updated_at
FROM posts
WHERE id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
		}
		return nil, storageErr("scan post", err)
	}

	comments, err := r.commentsByPost(ctx, `WHERE post_id = ?`, id)
	if err != nil {
		return nil, err
	}
	likes, err := r.likesByPost(ctx, `WHERE post_id = ?`, id)
	if err != nil {
		return nil, err
	}
	post.Comments = nonNilComments(comments[id])
	post.LikedBy = nonNilStrings(likes[id])
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, author_email, author_name, body, like_count, created_at, updated_at
FROM posts
ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, storageErr("query posts", err)
	}

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, storageErr("scan post", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storageErr("iterate posts", err)
	}
	// the pool holds one connection; release it before the follow-up queries
	rows.Close()

	comments, err := r.commentsByPost(ctx, "")
	if err != nil {
		return nil, err
	}
	likes, err := r.likesByPost(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Comments = nonNilComments(comments[posts[i].ID])
		posts[i].LikedBy = nonNilStrings(likes[posts[i].ID])
	}
	return posts, nil
}

func (r *PostRepository) AppendComment(ctx context.Context, postID string, comment domain.Comment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if err := touchPost(ctx, tx, postID, comment.CreatedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO post_comments (post_id, author_email, author_name, text, created_at)
VALUES (?, ?, ?, ?, ?)`,
		postID,
		comment.AuthorEmail,
		comment.AuthorName,
		comment.Text,
		comment.CreatedAt,
	); err != nil {
		return storageErr("insert comment", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit tx", err)
	}
	return nil
}

func (r *PostRepository) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	if err := r.ensureExists(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := r.commentsByPost(ctx, `WHERE post_id = ?`, postID)
	if err != nil {
		return nil, err
	}
	return nonNilComments(comments[postID]), nil
}

func (r *PostRepository) SetLike(ctx context.Context, postID, identity string, liked bool, at time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin tx", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if err := touchPost(ctx, tx, postID, at); err != nil {
		return 0, err
	}

	var (
		res   sql.Result
		delta int
	)
	if liked {
		res, err = tx.ExecContext(ctx, `
INSERT OR IGNORE INTO post_likes (post_id, identity, created_at)
VALUES (?, ?, ?)`, postID, identity, at)
		delta = 1
	} else {
		res, err = tx.ExecContext(ctx, `
DELETE FROM post_likes
WHERE post_id = ? AND identity = ?`, postID, identity)
		delta = -1
	}
	if err != nil {
		return 0, storageErr("update like set", err)
	}

	changed, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("like rows affected", err)
	}
	if changed == 1 {
		if _, err := tx.ExecContext(ctx, `
UPDATE posts
SET like_count = like_count + ?
WHERE id = ?`, delta, postID); err != nil {
			return 0, storageErr("update like count", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT like_count FROM posts WHERE id = ?`, postID).Scan(&count); err != nil {
		return 0, storageErr("read like count", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit tx", err)
	}
	return count, nil
}

func (r *PostRepository) LikeStatus(ctx context.Context, postID, identity string) (domain.LikeStatus, error) {
	var status domain.LikeStatus
	err := r.db.QueryRowContext(ctx, `
SELECT like_count,
	EXISTS(SELECT 1 FROM post_likes WHERE post_id = posts.id AND identity = ?)
FROM posts
WHERE id = ?`, identity, postID).Scan(&status.LikeCount, &status.Liked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LikeStatus{}, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
		}
		return domain.LikeStatus{}, storageErr("query like status", err)
	}
	return status, nil
}

func (r *PostRepository) ensureExists(ctx context.Context, postID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	if err != nil {
		return storageErr("query post", err)
	}
	return nil
}

// touchPost refreshes updated_at and doubles as the existence check that
// opens every per-post write transaction.
func touchPost(ctx context.Context, tx *sql.Tx, postID string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE posts SET updated_at = ? WHERE id = ?`, at, postID)
	if err != nil {
		return storageErr("touch post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("touch post rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	return nil
}

func (r *PostRepository) commentsByPost(ctx context.Context, where string, args ...any) (map[string][]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT post_id, author_email, author_name, text, created_at
FROM post_comments `+where+`
ORDER BY id ASC`, args...)
	if err != nil {
		return nil, storageErr("query comments", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Comment)
	for rows.Next() {
		var (
			postID  string
			comment domain.Comment
		)
		if err := rows.Scan(&postID, &comment.AuthorEmail, &comment.AuthorName, &comment.Text, &comment.CreatedAt); err != nil {
			return nil, storageErr("scan comment", err)
		}
		out[postID] = append(out[postID], comment)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate comments", err)
	}
	return out, nil
}

func (r *PostRepository) likesByPost(ctx context.Context, where string, args ...any) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT post_id, identity
FROM post_likes `+where+`
ORDER BY rowid ASC`, args...)
	if err != nil {
		return nil, storageErr("query likes", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var postID, identity string
		if err := rows.Scan(&postID, &identity); err != nil {
			return nil, storageErr("scan like", err)
		}
		out[postID] = append(out[postID], identity)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate likes", err)
	}
	return out, nil
}

func scanPost(row rowScanner) (domain.Post, error) {
	var post domain.Post
	err := row.Scan(
		&post.ID,
		&post.AuthorEmail,
		&post.AuthorName,
		&post.Body,
		&post.LikeCount,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	return post, err
}

func nonNilComments(c []domain.Comment) []domain.Comment {
	if c == nil {
		return []domain.Comment{}
	}
	return c
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
