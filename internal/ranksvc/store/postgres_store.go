package store

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

const cardsTable = "cards"

// CardsSchema creates the catalog table used by PostgresCardStore.
const CardsSchema = `
	CREATE TABLE IF NOT EXISTS cards (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL DEFAULT '',
		issuer              TEXT NOT NULL DEFAULT '',
		annual_fee          NUMERIC(10,2),
		visible             BOOLEAN,
		availability_status TEXT NOT NULL DEFAULT '',
		doc                 JSONB NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// upsertBatch bounds the rows per INSERT statement.
const upsertBatch = 200

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresCardStore struct {
	db *pgxpool.Pool
}

func NewPostgresCardStore(db *pgxpool.Pool) *PostgresCardStore {
	return &PostgresCardStore{db: db}
}

// EnsureSchema creates the cards table when it does not exist.
func (s *PostgresCardStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, CardsSchema); err != nil {
		return fmt.Errorf("create cards table: %w", err)
	}
	return nil
}

func listQuery() (string, []any, error) {
	return psql.Select("doc").From(cardsTable).OrderBy("id").ToSql()
}

// ListCards returns every stored card ordered by id.
func (s *PostgresCardStore) ListCards(ctx context.Context) ([]scoring.Card, error) {
	query, args, err := listQuery()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []scoring.Card
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		var card scoring.Card
		if err := json.Unmarshal(doc, &card); err != nil {
			log.Warnf("skipping unreadable card document: %s", err)
			continue
		}
		if card.ID == "" {
			continue
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	return cards, nil
}

// cardRow is the column projection of a card.
type cardRow struct {
	id      string
	name    string
	issuer  string
	fee     decimal.NullDecimal
	visible *bool
	status  string
	doc     []byte
}

func toRow(c scoring.Card) (cardRow, error) {
	doc, err := json.Marshal(c)
	if err != nil {
		return cardRow{}, fmt.Errorf("encode card %s: %w", c.ID, err)
	}
	row := cardRow{
		id:     string(c.ID),
		name:   c.Name,
		issuer: c.Issuer,
		status: c.AvailabilityStatus,
		doc:    doc,
	}
	if c.AnnualFee.Valid {
		row.fee = decimal.NewNullDecimal(decimal.NewFromFloat(c.AnnualFee.Value).Round(2))
	}
	if c.Visibility.Valid {
		v := c.Visibility.Value
		row.visible = &v
	}
	return row, nil
}

func upsertQuery(cards []scoring.Card) (string, []any, error) {
	q := psql.Insert(cardsTable).
		Columns("id", "name", "issuer", "annual_fee", "visible", "availability_status", "doc", "updated_at")

	for _, c := range cards {
		row, err := toRow(c)
		if err != nil {
			return "", nil, err
		}
		q = q.Values(row.id, row.name, row.issuer, row.fee, row.visible, row.status, row.doc, sq.Expr("now()"))
	}

	return q.Suffix(`ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		issuer = EXCLUDED.issuer,
		annual_fee = EXCLUDED.annual_fee,
		visible = EXCLUDED.visible,
		availability_status = EXCLUDED.availability_status,
		doc = EXCLUDED.doc,
		updated_at = EXCLUDED.updated_at`).ToSql()
}

// UpsertCards inserts or replaces cards by id in one transaction. Cards
// without an id are skipped.
func (s *PostgresCardStore) UpsertCards(ctx context.Context, cards []scoring.Card) (int, error) {
	valid := withIDs(cards)
	if len(valid) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	n := 0
	for start := 0; start < len(valid); start += upsertBatch {
		end := min(start+upsertBatch, len(valid))
		if err := execUpsert(ctx, tx, valid[start:end]); err != nil {
			return 0, err
		}
		n += end - start
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return n, nil
}

func execUpsert(ctx context.Context, tx pgx.Tx, cards []scoring.Card) error {
	query, args, err := upsertQuery(cards)
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert cards: %w", err)
	}
	return nil
}

func withIDs(cards []scoring.Card) []scoring.Card {
	out := make([]scoring.Card, 0, len(cards))
	seen := make(map[scoring.Text]int, len(cards))
	for _, c := range cards {
		if c.ID == "" {
			continue
		}
		// ON CONFLICT cannot touch the same row twice in one statement.
		if i, ok := seen[c.ID]; ok {
			out[i] = c
			continue
		}
		seen[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}
