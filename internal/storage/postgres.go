package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/solarb/solana-arb/internal/arbitrage"
	"github.com/solarb/solana-arb/pkg/types"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOpportunity stores an arbitrage opportunity in PostgreSQL.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	query := `
		INSERT INTO arbitrage_opportunities (
			id, pair, buy_venue, buy_price, sell_venue, sell_price,
			gross_profit_pct, net_profit_pct, buy_derived, sell_derived,
			detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		opp.ID,
		opp.Pair.String(),
		opp.BuyVenue,
		opp.BuyPrice,
		opp.SellVenue,
		opp.SellPrice,
		opp.GrossProfitPct,
		opp.NetProfitPct,
		opp.BuyDerived,
		opp.SellDerived,
		opp.DetectedAt,
	)

	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("pair", opp.Pair.String()))

	return nil
}

// StoreTrade stores one settled trade in PostgreSQL. Failures carry their
// error kind and message in dedicated columns so failed trades stay
// queryable without JSON parsing.
func (p *PostgresStorage) StoreTrade(ctx context.Context, record *types.TradeRecord) error {
	var errKind, errMessage sql.NullString
	if record.Error != nil {
		errKind = sql.NullString{String: string(record.Error.Kind), Valid: true}
		errMessage = sql.NullString{String: record.Error.Message, Valid: true}
	}

	query := `
		INSERT INTO trades (
			id, executed_at, pair, buy_venue, sell_venue,
			trade_amount, buy_price, sell_price, realized_profit,
			success, error_kind, error_message
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		record.ID,
		record.Timestamp,
		record.Pair.String(),
		record.BuyVenue,
		record.SellVenue,
		record.TradeAmount,
		record.BuyPrice,
		record.SellPrice,
		record.RealizedProfit,
		record.Success,
		errKind,
		errMessage,
	)

	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	p.logger.Debug("trade-stored",
		zap.String("trade-id", record.ID),
		zap.Bool("success", record.Success))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
