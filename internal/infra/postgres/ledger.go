package postgres

import (
	"context"
	"fmt"

	"asaa-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// LedgerArchive copies completed attempts into Postgres as a durable
// secondary sink behind the store-backed ledger.
type LedgerArchive struct {
	pool *pgxpool.Pool
}

func NewLedgerArchive(pool *pgxpool.Pool) *LedgerArchive {
	return &LedgerArchive{pool: pool}
}

func (a *LedgerArchive) Archive(ctx context.Context, result domain.QuizResult) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, username, score, total_questions, played_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		result.ID, result.Username, result.Score, result.TotalQuestions, result.Date)
	if err != nil {
		return fmt.Errorf("archive result: %w", err)
	}
	return nil
}

// Recent returns the newest archived results, for operational inspection.
func (a *LedgerArchive) Recent(ctx context.Context, limit int) ([]domain.QuizResult, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, username, score, total_questions, played_at
		 FROM quiz_results ORDER BY played_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []domain.QuizResult
	for rows.Next() {
		var r domain.QuizResult
		if err := rows.Scan(&r.ID, &r.Username, &r.Score, &r.TotalQuestions, &r.Date); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
