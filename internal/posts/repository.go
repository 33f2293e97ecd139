package posts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postboard/postboard/internal/platform/db"
	"github.com/postboard/postboard/internal/shared"
)

// Repository defines persistence operations for posts.
type Repository interface {
	Create(ctx context.Context, post Post) (*Post, error)
	Get(ctx context.Context, id int64) (*Post, error)
	// DeleteOwned removes the post when authorID wrote it. It returns
	// shared.ErrNotFound for an unknown post and shared.ErrForbidden when
	// another account owns it.
	DeleteOwned(ctx context.Context, id, authorID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a post.
func (r *PGRepository) Create(ctx context.Context, post Post) (*Post, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (author_id, title, content, created_at) VALUES ($1, $2, $3, now())
		 RETURNING id, created_at`,
		post.AuthorID, post.Title, post.Content,
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("posts: insert: %w", err)
	}
	return &post, nil
}

// Get fetches a post by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Post, error) {
	var p Post
	err := r.pool.QueryRow(ctx,
		`SELECT id, author_id, title, content, created_at FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("posts: get: %w", err)
	}
	return &p, nil
}

// DeleteOwned locks the row, checks ownership and deletes in one transaction.
func (r *PGRepository) DeleteOwned(ctx context.Context, id, authorID int64) error {
	return db.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		var owner int64
		err := tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("posts: lock: %w", err)
		}
		if owner != authorID {
			return shared.ErrForbidden
		}
		if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
			return fmt.Errorf("posts: delete: %w", err)
		}
		return nil
	})
}

// MemoryRepository keeps posts in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	posts  map[int64]Post
}

// NewMemoryRepository returns an empty in-memory post store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{posts: make(map[int64]Post)}
}

// Create implements Repository.
func (m *MemoryRepository) Create(_ context.Context, post Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	post.ID = m.nextID
	post.CreatedAt = time.Now().UTC()
	m.posts[post.ID] = post
	return &post, nil
}

// Get implements Repository.
func (m *MemoryRepository) Get(_ context.Context, id int64) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

// DeleteOwned implements Repository.
func (m *MemoryRepository) DeleteOwned(_ context.Context, id, authorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return shared.ErrNotFound
	}
	if p.AuthorID != authorID {
		return shared.ErrForbidden
	}
	delete(m.posts, id)
	return nil
}

var (
	_ Repository = (*PGRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
