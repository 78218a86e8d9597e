package storage

// sqlite.go: histórico append-only de posiciones y trades para auditoría.
//
// Las filas nunca se borran: una posición se inserta al abrirse y se marca
// terminal (SETTLED/FAILED) exactamente una vez. El estado de decisión vivo
// (balances, timers) nunca se lee de aquí.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id        TEXT NOT NULL,
    slug             TEXT,
    question         TEXT,
    category         TEXT,
    winning_token_id TEXT,
    price            REAL NOT NULL,
    edge_percent     REAL NOT NULL,
    close_time       TEXT,
    detected_at      TEXT NOT NULL,
    status           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    id               TEXT PRIMARY KEY,
    market_id        TEXT NOT NULL,
    slug             TEXT,
    question         TEXT,
    winning_token_id TEXT,
    shares           REAL NOT NULL,
    entry_price      REAL NOT NULL,
    allocated        REAL NOT NULL,
    expected_profit  REAL NOT NULL DEFAULT 0,
    edge_percent     REAL NOT NULL DEFAULT 0,
    close_time       TEXT,
    status           TEXT NOT NULL,
    opened_at        TEXT NOT NULL,
    settled_at       TEXT,
    settlement_price REAL NOT NULL DEFAULT 0,
    realized_pnl     REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    position_id TEXT NOT NULL,
    market_id   TEXT NOT NULL,
    side        TEXT NOT NULL,
    quantity    REAL NOT NULL,
    entry_price REAL NOT NULL,
    exit_price  REAL NOT NULL DEFAULT 0,
    pnl         REAL NOT NULL DEFAULT 0,
    pnl_percent REAL NOT NULL DEFAULT 0,
    opened_at   TEXT NOT NULL,
    closed_at   TEXT
);

CREATE INDEX IF NOT EXISTS idx_opps_market      ON opportunities(market_id, id DESC);
CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
CREATE INDEX IF NOT EXISTS idx_positions_opened ON positions(opened_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_closed    ON trades(closed_at DESC);
`

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
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

// SaveOpportunity inserta una oportunidad recién armada.
func (s *SQLiteStorage) SaveOpportunity(ctx context.Context, opp domain.Opportunity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opportunities
			(market_id, slug, question, category, winning_token_id, price,
			 edge_percent, close_time, detected_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		opp.MarketID, opp.Slug, opp.Question, opp.Category.String(),
		opp.WinningTokenID, opp.Price, opp.EdgePercent,
		formatTime(opp.CloseTime), formatTime(opp.DetectedAt), string(opp.Status),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOpportunity: %s: %w", opp.MarketID, err)
	}
	return nil
}

// UpdateOpportunityStatus transiciona la oportunidad más reciente del mercado.
func (s *SQLiteStorage) UpdateOpportunityStatus(ctx context.Context, marketID string, status domain.OpportunityStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE opportunities SET status = ?
		WHERE id = (SELECT id FROM opportunities WHERE market_id = ? ORDER BY id DESC LIMIT 1)
	`, string(status), marketID)
	if err != nil {
		return fmt.Errorf("storage.UpdateOpportunityStatus: %s: %w", marketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.UpdateOpportunityStatus: %s: no such opportunity", marketID)
	}
	return nil
}

// GetRecentOpportunities devuelve las últimas oportunidades armadas, más
// recientes primero. No es parte de ports.Storage: solo la usa el informe
// de salida.
func (s *SQLiteStorage) GetRecentOpportunities(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, slug, question, category, winning_token_id, price,
		       edge_percent, close_time, detected_at, status
		FROM opportunities
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRecentOpportunities: query: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var category, closeTime, detectedAt, status string

		if err := rows.Scan(
			&opp.MarketID, &opp.Slug, &opp.Question, &category,
			&opp.WinningTokenID, &opp.Price, &opp.EdgePercent,
			&closeTime, &detectedAt, &status,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRecentOpportunities: scan row: %w", err)
		}

		opp.Category = domain.Category(category)
		opp.CloseTime = parseTime(closeTime)
		opp.DetectedAt = parseTime(detectedAt)
		opp.Status = domain.OpportunityStatus(status)
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

// SavePosition inserta una posición recién abierta.
func (s *SQLiteStorage) SavePosition(ctx context.Context, pos domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(id, market_id, slug, question, winning_token_id, shares, entry_price,
			 allocated, expected_profit, edge_percent, close_time, status, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pos.ID, pos.MarketID, pos.Slug, pos.Question, pos.WinningTokenID,
		pos.Shares, pos.EntryPrice, pos.AllocatedCapital, pos.ExpectedProfit,
		pos.EdgePercent, formatTime(pos.CloseTime), string(pos.Status),
		formatTime(pos.OpenedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SavePosition: %s: %w", pos.ID, err)
	}
	return nil
}

// MarkPositionSettled registra el settlement de una posición.
func (s *SQLiteStorage) MarkPositionSettled(ctx context.Context, positionID string, settlementPrice, pnl float64, settledAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, settlement_price = ?, realized_pnl = ?, settled_at = ?
		WHERE id = ?
	`, string(domain.PositionSettled), settlementPrice, pnl, formatTime(settledAt), positionID)
	if err != nil {
		return fmt.Errorf("storage.MarkPositionSettled: %s: %w", positionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.MarkPositionSettled: %s: no such position", positionID)
	}
	return nil
}

// MarkPositionFailed registra una posición fallida.
func (s *SQLiteStorage) MarkPositionFailed(ctx context.Context, positionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE positions SET status = ? WHERE id = ?`,
		string(domain.PositionFailed), positionID,
	)
	if err != nil {
		return fmt.Errorf("storage.MarkPositionFailed: %s: %w", positionID, err)
	}
	return nil
}

// SaveTrade persiste un trade cerrado.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, tr domain.TradeRecord) error {
	var closedAt any
	if tr.ClosedAt != nil {
		closedAt = formatTime(*tr.ClosedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, position_id, market_id, side, quantity, entry_price, exit_price,
			 pnl, pnl_percent, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			exit_price  = excluded.exit_price,
			pnl         = excluded.pnl,
			pnl_percent = excluded.pnl_percent,
			closed_at   = excluded.closed_at
	`,
		tr.ID, tr.PositionID, tr.MarketID, tr.Side, tr.Quantity, tr.EntryPrice,
		tr.ExitPrice, tr.PnL, tr.PnLPercent, formatTime(tr.OpenedAt), closedAt,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: %s: %w", tr.ID, err)
	}
	return nil
}

// GetPositions devuelve las posiciones con el status dado, más recientes primero.
func (s *SQLiteStorage) GetPositions(ctx context.Context, status domain.PositionStatus) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, slug, question, winning_token_id, shares,
		       entry_price, allocated, expected_profit, edge_percent, close_time,
		       status, opened_at, settled_at, settlement_price, realized_pnl
		FROM positions
		WHERE status = ?
		ORDER BY opened_at DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("storage.GetPositions: query: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var pos domain.Position
		var statusStr string
		var closeTime, openedAt string
		var settledAt sql.NullString

		if err := rows.Scan(
			&pos.ID, &pos.MarketID, &pos.Slug, &pos.Question, &pos.WinningTokenID,
			&pos.Shares, &pos.EntryPrice, &pos.AllocatedCapital, &pos.ExpectedProfit,
			&pos.EdgePercent, &closeTime, &statusStr, &openedAt, &settledAt,
			&pos.SettlementPrice, &pos.RealizedPnL,
		); err != nil {
			return nil, fmt.Errorf("storage.GetPositions: scan row: %w", err)
		}

		pos.Status = domain.PositionStatus(statusStr)
		pos.CloseTime = parseTime(closeTime)
		pos.OpenedAt = parseTime(openedAt)
		if settledAt.Valid {
			t := parseTime(settledAt.String)
			pos.SettledAt = &t
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// GetRecentTrades devuelve los últimos trades cerrados, más recientes primero.
func (s *SQLiteStorage) GetRecentTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position_id, market_id, side, quantity, entry_price,
		       exit_price, pnl, pnl_percent, opened_at, closed_at
		FROM trades
		WHERE closed_at IS NOT NULL
		ORDER BY closed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRecentTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var tr domain.TradeRecord
		var openedAt string
		var closedAt sql.NullString

		if err := rows.Scan(
			&tr.ID, &tr.PositionID, &tr.MarketID, &tr.Side, &tr.Quantity,
			&tr.EntryPrice, &tr.ExitPrice, &tr.PnL, &tr.PnLPercent,
			&openedAt, &closedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRecentTrades: scan row: %w", err)
		}

		tr.OpenedAt = parseTime(openedAt)
		if closedAt.Valid {
			t := parseTime(closedAt.String)
			tr.ClosedAt = &t
		}
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Los timestamps se guardan como RFC3339 para que el round-trip sea exacto
// independientemente del driver.

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
