package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/model"
	"github.com/finsizer/sizing-engine/internal/money"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC and moved through their
// canonical string form on both write and read, which keeps the persisted
// decimals exact.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateProvider(ctx context.Context, p *model.Provider) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO providers (id, name, account_tier, active_from, active_to, calculation_currency_basis)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.AccountTier, p.ActiveFrom, p.ActiveTo, string(p.Basis),
	)
	if err != nil {
		return fmt.Errorf("create provider %s: %w", p.ID, err)
	}

	if err := insertComponents(ctx, tx, p.ID, p.Components); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) UpdateProvider(ctx context.Context, p *model.Provider) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE providers
		 SET name = $2, account_tier = $3, active_from = $4, active_to = $5,
		     calculation_currency_basis = $6
		 WHERE id = $1`,
		p.ID, p.Name, p.AccountTier, p.ActiveFrom, p.ActiveTo, string(p.Basis),
	)
	if err != nil {
		return fmt.Errorf("update provider %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update provider %s: %w", p.ID, ErrNotFound)
	}

	// Components are owned: replace the whole set in provider order.
	if _, err := tx.Exec(ctx,
		`DELETE FROM cost_components WHERE provider_id = $1`, p.ID); err != nil {
		return err
	}
	if err := insertComponents(ctx, tx, p.ID, p.Components); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertComponents(ctx context.Context, tx pgx.Tx, providerID string, components []model.CostComponent) error {
	for i, c := range components {
		_, err := tx.Exec(ctx,
			`INSERT INTO cost_components
			 (id, provider_id, position, display_name, kind, method,
			  fixed_amount, percentage_rate, minimum_amount, maximum_amount,
			  refundable, credit_amount, credit_valid_days)
			 VALUES ($1, $2, $3, $4, $5, $6,
			         $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10::NUMERIC,
			         $11, $12::NUMERIC, $13)`,
			c.ID, providerID, i, c.DisplayName, string(c.Kind), string(c.Method),
			c.FixedAmount.String(), c.PercentageRate.String(),
			c.MinimumAmount.String(), c.MaximumAmount.String(),
			c.Refundable, c.CreditAmount.String(), c.CreditValidDays,
		)
		if err != nil {
			return fmt.Errorf("insert component %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	var p model.Provider
	var basis string

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, account_tier, active_from, active_to, calculation_currency_basis
		 FROM providers WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.AccountTier, &p.ActiveFrom, &p.ActiveTo, &basis)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get provider %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get provider %s: %w", id, err)
	}
	p.Basis = money.Basis(basis)

	components, err := s.componentsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Components = components
	return &p, nil
}

func (s *PostgresStore) ListProviders(ctx context.Context) ([]model.Provider, error) {
	return s.listProviders(ctx,
		`SELECT id, name, account_tier, active_from, active_to, calculation_currency_basis
		 FROM providers ORDER BY name, active_from`)
}

func (s *PostgresStore) ListActiveProviders(ctx context.Context, date time.Time) ([]model.Provider, error) {
	return s.listProviders(ctx,
		`SELECT id, name, account_tier, active_from, active_to, calculation_currency_basis
		 FROM providers
		 WHERE active_from <= $1 AND (active_to IS NULL OR active_to >= $1)
		 ORDER BY name, active_from`, date)
}

func (s *PostgresStore) listProviders(ctx context.Context, query string, args ...any) ([]model.Provider, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var p model.Provider
		var basis string
		if err := rows.Scan(&p.ID, &p.Name, &p.AccountTier, &p.ActiveFrom, &p.ActiveTo, &basis); err != nil {
			return nil, err
		}
		p.Basis = money.Basis(basis)
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range providers {
		components, err := s.componentsFor(ctx, providers[i].ID)
		if err != nil {
			return nil, err
		}
		providers[i].Components = components
	}
	return providers, nil
}

func (s *PostgresStore) componentsFor(ctx context.Context, providerID string) ([]model.CostComponent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, display_name, kind, method,
		        fixed_amount::TEXT, percentage_rate::TEXT,
		        minimum_amount::TEXT, maximum_amount::TEXT,
		        refundable, credit_amount::TEXT, credit_valid_days
		 FROM cost_components
		 WHERE provider_id = $1
		 ORDER BY position`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var components []model.CostComponent
	for rows.Next() {
		var c model.CostComponent
		var kind, method string
		var fixed, rate, min, max, credit string

		if err := rows.Scan(&c.ID, &c.DisplayName, &kind, &method,
			&fixed, &rate, &min, &max,
			&c.Refundable, &credit, &c.CreditValidDays); err != nil {
			return nil, err
		}

		c.Kind = model.ComponentKind(kind)
		c.Method = model.CalculationMethod(method)
		c.FixedAmount, _ = decimal.NewFromString(fixed)
		c.PercentageRate, _ = decimal.NewFromString(rate)
		c.MinimumAmount, _ = decimal.NewFromString(min)
		c.MaximumAmount, _ = decimal.NewFromString(max)
		c.CreditAmount, _ = decimal.NewFromString(credit)

		components = append(components, c)
	}
	return components, rows.Err()
}

func (s *PostgresStore) DeleteProvider(ctx context.Context, id string) error {
	// cost_components carries ON DELETE CASCADE on provider_id.
	tag, err := s.pool.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete provider %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete provider %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Settings (single row, id = 1) ---

func (s *PostgresStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	var st model.Settings
	var rate, fixed, variable, max string

	err := s.pool.QueryRow(ctx,
		`SELECT base_currency, transaction_currency, double_currency, apply_cost,
		        currency_rate::TEXT, default_fixed_cost::TEXT,
		        default_variable_rate::TEXT, default_maximum_cost::TEXT
		 FROM settings WHERE id = 1`).
		Scan(&st.BaseCurrency, &st.TransactionCurrency, &st.DoubleCurrency, &st.ApplyCost,
			&rate, &fixed, &variable, &max)
	if errors.Is(err, pgx.ErrNoRows) {
		defaults := model.DefaultSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	st.CurrencyRate, _ = decimal.NewFromString(rate)
	st.DefaultFixedCost, _ = decimal.NewFromString(fixed)
	st.DefaultVariableRate, _ = decimal.NewFromString(variable)
	st.DefaultMaximumCost, _ = decimal.NewFromString(max)
	return &st, nil
}

func (s *PostgresStore) SaveSettings(ctx context.Context, st *model.Settings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO settings
		 (id, base_currency, transaction_currency, double_currency, apply_cost,
		  currency_rate, default_fixed_cost, default_variable_rate, default_maximum_cost)
		 VALUES (1, $1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC)
		 ON CONFLICT (id) DO UPDATE SET
		  base_currency = EXCLUDED.base_currency,
		  transaction_currency = EXCLUDED.transaction_currency,
		  double_currency = EXCLUDED.double_currency,
		  apply_cost = EXCLUDED.apply_cost,
		  currency_rate = EXCLUDED.currency_rate,
		  default_fixed_cost = EXCLUDED.default_fixed_cost,
		  default_variable_rate = EXCLUDED.default_variable_rate,
		  default_maximum_cost = EXCLUDED.default_maximum_cost`,
		st.BaseCurrency, st.TransactionCurrency, st.DoubleCurrency, st.ApplyCost,
		st.CurrencyRate.String(), st.DefaultFixedCost.String(),
		st.DefaultVariableRate.String(), st.DefaultMaximumCost.String(),
	)
	return err
}

