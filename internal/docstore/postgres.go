package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"receiving/pkg/db"
)

// Postgres keeps every collection in the `documents` jsonb table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	const q = `
SELECT id::text, data, created_at, updated_at
FROM documents
WHERE collection = $1 AND id = $2
`
	var rec Record
	if err := p.db.QueryRow(ctx, q, collection, id).Scan(&rec.ID, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (p *Postgres) Create(ctx context.Context, collection string, data any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}
	const q = `
INSERT INTO documents (collection, data)
VALUES ($1, CAST($2 AS jsonb))
RETURNING id::text
`
	var id string
	if err := p.db.QueryRow(ctx, q, collection, string(b)).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return merge(ctx, p.db, collection, id, fields)
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	tag, err := p.db.Exec(ctx, q, collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, collection string, preds ...Predicate) ([]Record, error) {
	where, args, err := buildWhere(collection, preds)
	if err != nil {
		return nil, err
	}
	q := `
SELECT id::text, data, created_at, updated_at
FROM documents
WHERE ` + where + `
ORDER BY created_at ASC, id ASC
`
	rows, err := p.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// buildWhere turns predicates into a WHERE clause over the jsonb data
// column. Field names are bound as parameters, never spliced into the SQL.
func buildWhere(collection string, preds []Predicate) (string, []any, error) {
	var (
		where = []string{"collection = $1"}
		args  = []any{collection}
	)
	for _, pr := range preds {
		switch pr.Op {
		case OpEq, OpGte, OpLte:
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", pr.Op)
		}
		args = append(args, pr.Field, pr.Value)
		field, val := len(args)-1, len(args)
		switch pr.Value.(type) {
		case time.Time:
			where = append(where, fmt.Sprintf("(data->>$%d::text)::timestamptz %s $%d", field, pr.Op, val))
		case bool:
			if pr.Op != OpEq {
				return "", nil, fmt.Errorf("operator %q not supported for bool", pr.Op)
			}
			where = append(where, fmt.Sprintf("(data->>$%d::text)::boolean = $%d", field, val))
		default:
			args[val-1] = fmt.Sprint(pr.Value)
			where = append(where, fmt.Sprintf("data->>$%d::text %s $%d", field, pr.Op, val))
		}
	}
	return strings.Join(where, " AND "), args, nil
}

// Mutate locks the row with SELECT ... FOR UPDATE for the duration of fn.
func (p *Postgres) Mutate(ctx context.Context, collection, id string, fn MutateFunc) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return db.WithTx(ctx, p.db, func(tx pgx.Tx) error {
		const q = `
SELECT id::text, data, created_at, updated_at
FROM documents
WHERE collection = $1 AND id = $2
FOR UPDATE
`
		var rec Record
		if err := tx.QueryRow(ctx, q, collection, id).Scan(&rec.ID, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		fields, err := fn(rec)
		if err != nil {
			return err
		}
		if fields == nil {
			return nil
		}
		return merge(ctx, tx, collection, id, fields)
	})
}

// execer is satisfied by *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func merge(ctx context.Context, ex execer, collection, id string, fields map[string]any) error {
	b, err := encodeFields(fields)
	if err != nil {
		return fmt.Errorf("encode %s fields: %w", collection, err)
	}
	const q = `
UPDATE documents
SET data = data || CAST($3 AS jsonb), updated_at = NOW()
WHERE collection = $1 AND id = $2
`
	tag, err := ex.Exec(ctx, q, collection, id, string(b))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
