package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chat-support-backend/internal/domain"
)

type postgresHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHistoryRepository instantiates the Postgres-backed audit trail.
func NewPostgresHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &postgresHistoryRepository{pool: pool}
}

func (r *postgresHistoryRepository) Record(ctx context.Context, entry *domain.WorkItemHistory) error {
	const query = `
        INSERT INTO work_item_history (work_item_id, change_type, actor_id, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.WorkItemID,
		entry.ChangeType,
		entry.ActorID,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *postgresHistoryRepository) ListByWorkItem(ctx context.Context, workItemID string, limit int) ([]domain.WorkItemHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, work_item_id, change_type, actor_id, old_value, new_value, created_at
        FROM work_item_history
        WHERE work_item_id=$1
        ORDER BY created_at ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, workItemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkItemHistory
	for rows.Next() {
		var entry domain.WorkItemHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.WorkItemID,
			&entry.ChangeType,
			&entry.ActorID,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

type memoryHistoryRepository struct {
	mu      sync.Mutex
	entries []domain.WorkItemHistory
	nextID  int
}

// NewMemoryHistoryRepository creates an in-memory audit trail for tests and
// DSN-less development.
func NewMemoryHistoryRepository() HistoryRepository {
	return &memoryHistoryRepository{}
}

func (r *memoryHistoryRepository) Record(ctx context.Context, entry *domain.WorkItemHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = strconv.Itoa(r.nextID)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryHistoryRepository) ListByWorkItem(ctx context.Context, workItemID string, limit int) ([]domain.WorkItemHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	var result []domain.WorkItemHistory
	for _, entry := range r.entries {
		if entry.WorkItemID == workItemID {
			result = append(result, entry)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

