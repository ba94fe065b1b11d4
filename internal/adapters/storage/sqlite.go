package storage

// sqlite.go: store local de un solo proceso.
//
// Tablas:
//   - `user_markets`: mercados creados por usuarios. Outcomes/totals como JSON.
//   - `votes`: un voto vigente por (prediction_id, wallet). Re-votar sobreescribe.
//   - `resolutions`: un override por prediction_id. Escribir otra reemplaza.
//   - `prediction_outcomes`: cierres manuales de admin.
// Las fechas se guardan como unix seconds.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_markets (
    id                INTEGER PRIMARY KEY,
    question          TEXT    NOT NULL,
    category          TEXT    NOT NULL,
    end_time          INTEGER NOT NULL DEFAULT 0,
    outcomes          TEXT    NOT NULL,
    totals            TEXT    NOT NULL,
    total_liquidity   REAL    NOT NULL DEFAULT 0,
    resolved          INTEGER NOT NULL DEFAULT 0,
    winning_outcome   INTEGER,
    polymarket_id     TEXT    NOT NULL DEFAULT '',
    market_public_key TEXT    NOT NULL DEFAULT '',
    description       TEXT    NOT NULL DEFAULT '',
    creator           TEXT    NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS votes (
    prediction_id     INTEGER NOT NULL,
    wallet            TEXT    NOT NULL,
    outcome_index     INTEGER NOT NULL,
    amount            REAL    NOT NULL,
    voted_at          INTEGER NOT NULL,
    market_public_key TEXT    NOT NULL DEFAULT '',
    tx_hash           TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (prediction_id, wallet)
);

CREATE TABLE IF NOT EXISTS resolutions (
    prediction_id INTEGER PRIMARY KEY,
    outcome_index INTEGER NOT NULL,
    resolved_at   INTEGER NOT NULL,
    staked_amount REAL    NOT NULL DEFAULT 0,
    source        TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS prediction_outcomes (
    prediction_id INTEGER PRIMARY KEY,
    outcome_index INTEGER NOT NULL,
    closed_at     INTEGER NOT NULL,
    closed_by     TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_votes_wallet ON votes(wallet);
CREATE INDEX IF NOT EXISTS idx_user_markets_created ON user_markets(created_at DESC);
`

// SQLiteStorage implementa ports.LocalStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- user markets ---

// SaveUserMarket hace upsert de un mercado de usuario por id.
func (s *SQLiteStorage) SaveUserMarket(ctx context.Context, m domain.MarketRecord) error {
	m.Normalize()
	outcomes, err := json.Marshal(m.Outcomes)
	if err != nil {
		return fmt.Errorf("storage.SaveUserMarket: marshal outcomes: %w", err)
	}
	totals, err := json.Marshal(m.Totals)
	if err != nil {
		return fmt.Errorf("storage.SaveUserMarket: marshal totals: %w", err)
	}
	var winning sql.NullInt64
	if m.WinningOutcome != nil {
		winning = sql.NullInt64{Int64: int64(*m.WinningOutcome), Valid: true}
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_markets
			(id, question, category, end_time, outcomes, totals, total_liquidity,
			 resolved, winning_outcome, polymarket_id, market_public_key,
			 description, creator, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question          = excluded.question,
			category          = excluded.category,
			end_time          = excluded.end_time,
			outcomes          = excluded.outcomes,
			totals            = excluded.totals,
			total_liquidity   = excluded.total_liquidity,
			resolved          = excluded.resolved,
			winning_outcome   = excluded.winning_outcome,
			polymarket_id     = excluded.polymarket_id,
			market_public_key = excluded.market_public_key,
			description       = excluded.description
	`,
		m.ID, m.Question, string(m.Category), unixOrZero(m.EndTime), string(outcomes), string(totals),
		m.TotalLiquidity, boolInt(m.Resolved), winning, m.PolymarketID, m.MarketPublicKey,
		m.Description, m.Creator, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveUserMarket: upsert %d: %w", m.ID, err)
	}
	return nil
}

// ListUserMarkets devuelve los mercados de usuario, los más recientes primero.
func (s *SQLiteStorage) ListUserMarkets(ctx context.Context) ([]domain.MarketRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, category, end_time, outcomes, totals, total_liquidity,
		       resolved, winning_outcome, polymarket_id, market_public_key,
		       description, creator, created_at
		FROM user_markets
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListUserMarkets: query: %w", err)
	}
	defer rows.Close()

	markets := []domain.MarketRecord{}
	for rows.Next() {
		var (
			m                  domain.MarketRecord
			category           string
			endTime, createdAt int64
			outcomes, totals   string
			resolved           int
			winning            sql.NullInt64
		)
		if err := rows.Scan(
			&m.ID, &m.Question, &category, &endTime, &outcomes, &totals, &m.TotalLiquidity,
			&resolved, &winning, &m.PolymarketID, &m.MarketPublicKey,
			&m.Description, &m.Creator, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage.ListUserMarkets: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(outcomes), &m.Outcomes); err != nil {
			return nil, fmt.Errorf("storage.ListUserMarkets: outcomes of %d: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(totals), &m.Totals); err != nil {
			return nil, fmt.Errorf("storage.ListUserMarkets: totals of %d: %w", m.ID, err)
		}
		m.Origin = domain.OriginLocal
		m.Category = domain.Category(category)
		m.EndTime = fromUnix(endTime)
		m.CreatedAt = fromUnix(createdAt)
		m.Resolved = resolved == 1
		m.IsOnChain = m.MarketPublicKey != ""
		if winning.Valid {
			w := int(winning.Int64)
			m.WinningOutcome = &w
		}
		m.Normalize()
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// ClearUserMarkets borra todos los mercados de usuario.
func (s *SQLiteStorage) ClearUserMarkets(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_markets`); err != nil {
		return fmt.Errorf("storage.ClearUserMarkets: %w", err)
	}
	return nil
}

// --- votes ---

// UpsertVote guarda el voto vigente de la wallet, sobreescribiendo el anterior.
func (s *SQLiteStorage) UpsertVote(ctx context.Context, v domain.Vote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (prediction_id, wallet, outcome_index, amount, voted_at, market_public_key, tx_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(prediction_id, wallet) DO UPDATE SET
			outcome_index     = excluded.outcome_index,
			amount            = excluded.amount,
			voted_at          = excluded.voted_at,
			market_public_key = excluded.market_public_key,
			tx_hash           = excluded.tx_hash
	`, v.PredictionID, v.WalletAddress, v.OutcomeIndex, v.Amount, unixOrZero(v.Timestamp), v.MarketPublicKey, v.TxHash)
	if err != nil {
		return fmt.Errorf("storage.UpsertVote: %d/%s: %w", v.PredictionID, v.WalletAddress, err)
	}
	return nil
}

// GetVote devuelve el voto de wallet en el mercado, o domain.ErrNotFound.
func (s *SQLiteStorage) GetVote(ctx context.Context, predictionID int64, wallet string) (domain.Vote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT prediction_id, wallet, outcome_index, amount, voted_at, market_public_key, tx_hash
		FROM votes WHERE prediction_id = ? AND wallet = ?
	`, predictionID, wallet)
	v, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Vote{}, fmt.Errorf("storage.GetVote: %d/%s: %w", predictionID, wallet, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Vote{}, fmt.Errorf("storage.GetVote: %w", err)
	}
	return v, nil
}

// ListVotes devuelve los votos de un mercado ordenados por fecha.
func (s *SQLiteStorage) ListVotes(ctx context.Context, predictionID int64) ([]domain.Vote, error) {
	return s.queryVotes(ctx, "storage.ListVotes", `
		SELECT prediction_id, wallet, outcome_index, amount, voted_at, market_public_key, tx_hash
		FROM votes WHERE prediction_id = ?
		ORDER BY voted_at, wallet
	`, predictionID)
}

// ListAllVotes devuelve todos los votos.
func (s *SQLiteStorage) ListAllVotes(ctx context.Context) ([]domain.Vote, error) {
	return s.queryVotes(ctx, "storage.ListAllVotes", `
		SELECT prediction_id, wallet, outcome_index, amount, voted_at, market_public_key, tx_hash
		FROM votes
		ORDER BY prediction_id, voted_at, wallet
	`)
}

// ClearVotes borra todos los votos.
func (s *SQLiteStorage) ClearVotes(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM votes`); err != nil {
		return fmt.Errorf("storage.ClearVotes: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) queryVotes(ctx context.Context, op, query string, args ...any) ([]domain.Vote, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	votes := []domain.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// --- resolutions ---

// SaveResolution reemplaza la resolución del mercado.
func (s *SQLiteStorage) SaveResolution(ctx context.Context, r domain.Resolution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (prediction_id, outcome_index, resolved_at, staked_amount, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(prediction_id) DO UPDATE SET
			outcome_index = excluded.outcome_index,
			resolved_at   = excluded.resolved_at,
			staked_amount = excluded.staked_amount,
			source        = excluded.source
	`, r.PredictionID, r.OutcomeIndex, unixOrZero(r.Timestamp), r.StakedAmount, string(r.Source))
	if err != nil {
		return fmt.Errorf("storage.SaveResolution: %d: %w", r.PredictionID, err)
	}
	return nil
}

// GetResolution devuelve la resolución del mercado, o domain.ErrNotFound.
func (s *SQLiteStorage) GetResolution(ctx context.Context, predictionID int64) (domain.Resolution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT prediction_id, outcome_index, resolved_at, staked_amount, source
		FROM resolutions WHERE prediction_id = ?
	`, predictionID)
	r, err := scanResolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Resolution{}, fmt.Errorf("storage.GetResolution: %d: %w", predictionID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("storage.GetResolution: %w", err)
	}
	return r, nil
}

// ListResolutions devuelve todas las resoluciones.
func (s *SQLiteStorage) ListResolutions(ctx context.Context) ([]domain.Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prediction_id, outcome_index, resolved_at, staked_amount, source
		FROM resolutions ORDER BY prediction_id
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListResolutions: query: %w", err)
	}
	defer rows.Close()

	out := []domain.Resolution{}
	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListResolutions: scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteResolution elimina el override (reabrir un mercado).
func (s *SQLiteStorage) DeleteResolution(ctx context.Context, predictionID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resolutions WHERE prediction_id = ?`, predictionID); err != nil {
		return fmt.Errorf("storage.DeleteResolution: %d: %w", predictionID, err)
	}
	return nil
}

// --- prediction outcomes ---

// SaveOutcome registra (o reemplaza) el cierre manual de un mercado.
func (s *SQLiteStorage) SaveOutcome(ctx context.Context, o domain.PredictionOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prediction_outcomes (prediction_id, outcome_index, closed_at, closed_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(prediction_id) DO UPDATE SET
			outcome_index = excluded.outcome_index,
			closed_at     = excluded.closed_at,
			closed_by     = excluded.closed_by
	`, o.PredictionID, o.OutcomeIndex, unixOrZero(o.ClosedAt), o.ClosedBy)
	if err != nil {
		return fmt.Errorf("storage.SaveOutcome: %d: %w", o.PredictionID, err)
	}
	return nil
}

// GetOutcome devuelve el cierre manual del mercado, o domain.ErrNotFound.
func (s *SQLiteStorage) GetOutcome(ctx context.Context, predictionID int64) (domain.PredictionOutcome, error) {
	var (
		o        domain.PredictionOutcome
		closedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT prediction_id, outcome_index, closed_at, closed_by
		FROM prediction_outcomes WHERE prediction_id = ?
	`, predictionID).Scan(&o.PredictionID, &o.OutcomeIndex, &closedAt, &o.ClosedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return o, fmt.Errorf("storage.GetOutcome: %d: %w", predictionID, domain.ErrNotFound)
	}
	if err != nil {
		return o, fmt.Errorf("storage.GetOutcome: %w", err)
	}
	o.ClosedAt = fromUnix(closedAt)
	return o, nil
}

// ListOutcomes devuelve todos los cierres manuales.
func (s *SQLiteStorage) ListOutcomes(ctx context.Context) ([]domain.PredictionOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prediction_id, outcome_index, closed_at, closed_by
		FROM prediction_outcomes ORDER BY prediction_id
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListOutcomes: query: %w", err)
	}
	defer rows.Close()

	out := []domain.PredictionOutcome{}
	for rows.Next() {
		var (
			o        domain.PredictionOutcome
			closedAt int64
		)
		if err := rows.Scan(&o.PredictionID, &o.OutcomeIndex, &closedAt, &o.ClosedBy); err != nil {
			return nil, fmt.Errorf("storage.ListOutcomes: scan row: %w", err)
		}
		o.ClosedAt = fromUnix(closedAt)
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteOutcome elimina el cierre manual del mercado.
func (s *SQLiteStorage) DeleteOutcome(ctx context.Context, predictionID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM prediction_outcomes WHERE prediction_id = ?`, predictionID); err != nil {
		return fmt.Errorf("storage.DeleteOutcome: %d: %w", predictionID, err)
	}
	return nil
}

// --- helpers internos ---

type scanner interface {
	Scan(dest ...any) error
}

func scanVote(row scanner) (domain.Vote, error) {
	var (
		v       domain.Vote
		votedAt int64
	)
	if err := row.Scan(&v.PredictionID, &v.WalletAddress, &v.OutcomeIndex, &v.Amount, &votedAt, &v.MarketPublicKey, &v.TxHash); err != nil {
		return domain.Vote{}, err
	}
	v.Timestamp = fromUnix(votedAt)
	return v, nil
}

func scanResolution(row scanner) (domain.Resolution, error) {
	var (
		r          domain.Resolution
		resolvedAt int64
		source     string
	)
	if err := row.Scan(&r.PredictionID, &r.OutcomeIndex, &resolvedAt, &r.StakedAmount, &source); err != nil {
		return domain.Resolution{}, err
	}
	r.Timestamp = fromUnix(resolvedAt)
	r.Source = domain.ResolutionSource(source)
	return r, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
