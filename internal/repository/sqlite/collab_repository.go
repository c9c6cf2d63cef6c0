package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/repository"
)

const createCollaborationTable = `
CREATE TABLE IF NOT EXISTS collaboration_requests (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	skills TEXT NOT NULL,
	contact TEXT NOT NULL,
	owner_email TEXT NOT NULL,
	owner_name TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_collaboration_requests_created_at ON collaboration_requests(created_at);
`

type CollaborationRepository struct {
	db *sql.DB
}

func NewCollaborationRepository(db *sql.DB) repository.CollaborationRepository {
	return &CollaborationRepository{db: db}
}

func (r *CollaborationRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCollaborationTable); err != nil {
		return fmt.Errorf("create collaboration_requests table: %w", err)
	}
	return nil
}

func (r *CollaborationRepository) Create(ctx context.Context, req *domain.CollaborationRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO collaboration_requests (id, title, description, skills, contact, owner_email, owner_name, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.Title,
		req.Description,
		req.Skills,
		req.Contact,
		req.OwnerEmail,
		req.OwnerName,
		req.CreatedAt,
	); err != nil {
		return storageErr("insert collaboration request", err)
	}
	return nil
}

func (r *CollaborationRepository) ListRecent(ctx context.Context) ([]domain.CollaborationRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, description, skills, contact, owner_email, owner_name, created_at
FROM collaboration_requests
ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, storageErr("query collaboration requests", err)
	}
	defer rows.Close()

	reqs := []domain.CollaborationRequest{}
	for rows.Next() {
		var req domain.CollaborationRequest
		if err := rows.Scan(&req.ID, &req.Title, &req.Description, &req.Skills, &req.Contact, &req.OwnerEmail, &req.OwnerName, &req.CreatedAt); err != nil {
			return nil, storageErr("scan collaboration request", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate collaboration requests", err)
	}
	return reqs, nil
}
