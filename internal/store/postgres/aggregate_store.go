package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// AggregateStore implements domain.AggregateStore using PostgreSQL.
type AggregateStore struct {
	pool *pgxpool.Pool
}

// NewAggregateStore creates an AggregateStore backed by the given pool.
func NewAggregateStore(pool *pgxpool.Pool) *AggregateStore {
	return &AggregateStore{pool: pool}
}

// List returns aggregate rows matching the query, ordered by day, type and
// side so paging through a structure's history is stable.
func (s *AggregateStore) List(ctx context.Context, q domain.AggregateQuery) ([]domain.AggregateRow, error) {
	var (
		sb     strings.Builder
		args   []any
		argIdx = 1
	)
	sb.WriteString(`
		SELECT day, structure_id, type_id, is_buy, liberal,
		       amount, order_count, value, high, low, average
		  FROM daily_trade_aggregates
		 WHERE structure_id = $1`)
	args = append(args, q.StructureID)
	argIdx++

	if !q.Day.IsZero() {
		sb.WriteString(" AND day = $" + strconv.Itoa(argIdx))
		args = append(args, q.Day)
		argIdx++
	}
	if q.TypeID != 0 {
		sb.WriteString(" AND type_id = $" + strconv.Itoa(argIdx))
		args = append(args, q.TypeID)
		argIdx++
	}
	if q.IsBuy != nil {
		sb.WriteString(" AND is_buy = $" + strconv.Itoa(argIdx))
		args = append(args, *q.IsBuy)
		argIdx++
	}
	if q.Liberal != nil {
		sb.WriteString(" AND liberal = $" + strconv.Itoa(argIdx))
		args = append(args, *q.Liberal)
		argIdx++
	}
	sb.WriteString(" ORDER BY day, type_id, is_buy, liberal")

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list aggregates: %w", err)
	}
	defer rows.Close()

	var out []domain.AggregateRow
	for rows.Next() {
		var r domain.AggregateRow
		if err := rows.Scan(
			&r.Day, &r.StructureID, &r.TypeID, &r.IsBuy, &r.Liberal,
			&r.Amount, &r.OrderCount, &r.Value, &r.High, &r.Low, &r.Average,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan aggregate row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate aggregates: %w", err)
	}
	return out, nil
}

var _ domain.AggregateStore = (*AggregateStore)(nil)
