package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chat-support-backend/internal/domain"
)

const workItemColumns = `id, status, assigned_agent_id, assigned_agent_name, claimed_at,
       customer_name, customer_id, creator_user_id, metadata, created_at, updated_at`

type postgresWorkItemRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresWorkItemRepository instantiates the Postgres-backed repository.
func NewPostgresWorkItemRepository(pool *pgxpool.Pool) WorkItemRepository {
	return &postgresWorkItemRepository{pool: pool}
}

func (r *postgresWorkItemRepository) Create(ctx context.Context, item *domain.WorkItem) error {
	const query = `
        INSERT INTO work_items (id, status, customer_name, customer_id, creator_user_id, metadata)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		item.ID,
		item.Status,
		item.CustomerName,
		item.CustomerID,
		item.CreatorUserID,
		item.Metadata,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *postgresWorkItemRepository) Get(ctx context.Context, id string) (*domain.WorkItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM work_items WHERE id=$1`, workItemColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *postgresWorkItemRepository) List(ctx context.Context, filter ListFilter) ([]domain.WorkItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM work_items`, workItemColumns)
	clauses := []string{}
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

// Claim relies on Postgres row-level atomicity: the UPDATE applies its SET
// only to rows still matching the Unassigned precondition at write time. Of
// two racing claims, the second re-evaluates the predicate after the first
// commits and matches zero rows.
func (r *postgresWorkItemRepository) Claim(ctx context.Context, id, agentID, agentName string) (*ClaimOutcome, error) {
	query := fmt.Sprintf(`
        UPDATE work_items
        SET status=$2, assigned_agent_id=$3, assigned_agent_name=$4, claimed_at=NOW(), updated_at=NOW()
        WHERE id=$1 AND status=$5 AND assigned_agent_id IS NULL
        RETURNING %s`, workItemColumns)
	item, err := r.fetchSingle(ctx, query, id, domain.StatusClaimed, agentID, agentName, domain.StatusUnassigned)
	if err == nil {
		return &ClaimOutcome{Claimed: true, Item: item}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Precondition failed: either the item is gone or someone else holds it.
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	outcome := &ClaimOutcome{Claimed: false, Item: current, ClaimedAt: current.ClaimedAt}
	if current.AssignedAgentName != nil {
		outcome.ClaimedBy = *current.AssignedAgentName
	}
	return outcome, nil
}

func (r *postgresWorkItemRepository) AssignAgent(ctx context.Context, id, agentID, agentName string) (*domain.WorkItem, error) {
	query := fmt.Sprintf(`
        UPDATE work_items
        SET status=$2, assigned_agent_id=$3, assigned_agent_name=$4,
            claimed_at=COALESCE(claimed_at, NOW()), updated_at=NOW()
        WHERE id=$1
        RETURNING %s`, workItemColumns)
	return r.fetchSingle(ctx, query, id, domain.StatusClaimed, agentID, agentName)
}

func (r *postgresWorkItemRepository) UpdateStatus(ctx context.Context, id string, status domain.WorkItemStatus) (*domain.WorkItem, error) {
	query := fmt.Sprintf(`
        UPDATE work_items SET status=$2, updated_at=NOW()
        WHERE id=$1
        RETURNING %s`, workItemColumns)
	return r.fetchSingle(ctx, query, id, status)
}

func (r *postgresWorkItemRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]string) (*domain.WorkItem, error) {
	query := fmt.Sprintf(`
        UPDATE work_items SET metadata = COALESCE(metadata, '{}'::jsonb) || $2, updated_at=NOW()
        WHERE id=$1
        RETURNING %s`, workItemColumns)
	return r.fetchSingle(ctx, query, id, metadata)
}

func (r *postgresWorkItemRepository) Cancel(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE work_items SET status=$2, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id, domain.StatusCancelled)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresWorkItemRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM work_items WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresWorkItemRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.WorkItem, error) {
	var item domain.WorkItem
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&item.ID,
		&item.Status,
		&item.AssignedAgentID,
		&item.AssignedAgentName,
		&item.ClaimedAt,
		&item.CustomerName,
		&item.CustomerID,
		&item.CreatorUserID,
		&item.Metadata,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func scanWorkItems(rows pgx.Rows) ([]domain.WorkItem, error) {
	var result []domain.WorkItem
	for rows.Next() {
		var item domain.WorkItem
		if err := rows.Scan(
			&item.ID,
			&item.Status,
			&item.AssignedAgentID,
			&item.AssignedAgentName,
			&item.ClaimedAt,
			&item.CustomerName,
			&item.CustomerID,
			&item.CreatorUserID,
			&item.Metadata,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
