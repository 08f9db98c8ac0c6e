package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// Postgres implementa o document store em duas tabelas (races, bets)
// Toda escrita é upsert last-write-wins por chave determinística
type Postgres struct {
	DB *sql.DB
}

// NewPostgres retorna uma instância do store Postgres
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

func dateParam(id race.ID) string { return id.Date.Format("2006-01-02") }

// SaveFeatures grava (ou sobrescreve) as features da corrida
func (p *Postgres) SaveFeatures(ctx context.Context, id race.ID, f race.Features) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	const q = `
		INSERT INTO races (race_key, race_date, venue_id, race_number, features, updated_at)
		VALUES ($1, $2::date, $3, $4, $5, NOW())
		ON CONFLICT (race_key) DO UPDATE SET
		  features   = EXCLUDED.features,
		  updated_at = NOW()
	`
	if _, err := p.DB.ExecContext(ctx, q, id.Key(), dateParam(id), id.VenueID, id.RaceNumber, b); err != nil {
		return fmt.Errorf("upsert features %s: %w", id.Key(), err)
	}
	return nil
}

// LoadFeatures lê as features; documento inexistente ou vazio => race.ErrFeaturesMissing
func (p *Postgres) LoadFeatures(ctx context.Context, id race.ID) (race.Features, error) {
	var raw []byte
	err := p.DB.QueryRowContext(ctx, `SELECT features FROM races WHERE race_key = $1`, id.Key()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, race.ErrFeaturesMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load features %s: %w", id.Key(), err)
	}
	if len(raw) == 0 {
		return nil, race.ErrFeaturesMissing
	}

	var f race.Features
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode features %s: %w", id.Key(), err)
	}
	if len(f) == 0 {
		return nil, race.ErrFeaturesMissing
	}
	return f, nil
}

// SavePrediction substitui o snapshot do estágio, preservando o do outro estágio
func (p *Postgres) SavePrediction(ctx context.Context, id race.ID, rec race.PredictionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}
	const q = `
		INSERT INTO races (race_key, race_date, venue_id, race_number, predictions, updated_at)
		VALUES ($1, $2::date, $3, $4, jsonb_build_object($5::text, $6::jsonb), NOW())
		ON CONFLICT (race_key) DO UPDATE SET
		  predictions = COALESCE(races.predictions, '{}'::jsonb) || EXCLUDED.predictions,
		  updated_at  = NOW()
	`
	if _, err := p.DB.ExecContext(ctx, q, id.Key(), dateParam(id), id.VenueID, id.RaceNumber, string(rec.Stage), b); err != nil {
		return fmt.Errorf("upsert prediction %s/%s: %w", id.Key(), rec.Stage, err)
	}
	return nil
}

// SaveResult grava o resultado oficial (incluindo a flag de devolução)
func (p *Postgres) SaveResult(ctx context.Context, id race.ID, res race.Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	const q = `
		INSERT INTO races (race_key, race_date, venue_id, race_number, result, updated_at)
		VALUES ($1, $2::date, $3, $4, $5, NOW())
		ON CONFLICT (race_key) DO UPDATE SET
		  result     = EXCLUDED.result,
		  updated_at = NOW()
	`
	if _, err := p.DB.ExecContext(ctx, q, id.Key(), dateParam(id), id.VenueID, id.RaceNumber, b); err != nil {
		return fmt.Errorf("upsert result %s: %w", id.Key(), err)
	}
	return nil
}

// UpsertBets grava as apostas pela chave {race_key}-{combination}.
// Reemissão do predict_final sobrescreve preço/EV só enquanto a aposta está pending.
func (p *Postgres) UpsertBets(ctx context.Context, bets []race.Bet) error {
	const q = `
		INSERT INTO bets
		  (bet_key, race_key, race_date, venue_id, race_number, combination, stake, price, ev_percent, status, return_amount, created_at)
		VALUES
		  ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, 'pending', 0, $10)
		ON CONFLICT (bet_key) DO UPDATE SET
		  stake      = EXCLUDED.stake,
		  price      = EXCLUDED.price,
		  ev_percent = EXCLUDED.ev_percent
		WHERE bets.status = 'pending'
	`
	for _, b := range bets {
		_, err := p.DB.ExecContext(ctx, q,
			b.Key(), b.Race.Key(), dateParam(b.Race), b.Race.VenueID, b.Race.RaceNumber,
			string(b.Combination), b.Stake, b.Price, b.EVPercent, b.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert bet %s: %w", b.Key(), err)
		}
	}
	return nil
}

const betColumns = `race_date, venue_id, race_number, combination, stake, price, ev_percent, status, return_amount, settled_at, created_at`

// ListBets retorna todas as apostas da corrida, em qualquer status
func (p *Postgres) ListBets(ctx context.Context, id race.ID) ([]race.Bet, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE race_key = $1 ORDER BY combination`, id.Key())
	if err != nil {
		return nil, fmt.Errorf("list bets %s: %w", id.Key(), err)
	}
	defer rows.Close()
	return scanBets(rows)
}

// SettleBets aplica o status liquidado; o filtro status='pending' impede regradear
// Retorna quantas apostas de fato mudaram
func (p *Postgres) SettleBets(ctx context.Context, bets []race.Bet) (int, error) {
	const q = `
		UPDATE bets
		SET status = $2, return_amount = $3, settled_at = $4
		WHERE bet_key = $1 AND status = 'pending'
	`
	settled := 0
	for _, b := range bets {
		res, err := p.DB.ExecContext(ctx, q, b.Key(), string(b.Status), b.Return, b.SettledAt)
		if err != nil {
			return settled, fmt.Errorf("settle bet %s: %w", b.Key(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			settled += int(n)
		}
	}
	return settled, nil
}

// BetsSince lista apostas criadas a partir de since, da mais antiga para a mais nova
func (p *Postgres) BetsSince(ctx context.Context, since time.Time) ([]race.Bet, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE created_at >= $1 ORDER BY created_at`, since)
	if err != nil {
		return nil, fmt.Errorf("bets since: %w", err)
	}
	defer rows.Close()
	return scanBets(rows)
}

// RecentBets lista as últimas apostas, da mais nova para a mais antiga
func (p *Postgres) RecentBets(ctx context.Context, limit int) ([]race.Bet, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent bets: %w", err)
	}
	defer rows.Close()
	return scanBets(rows)
}

func scanBets(rows *sql.Rows) ([]race.Bet, error) {
	var out []race.Bet
	for rows.Next() {
		var (
			b         race.Bet
			combo     string
			status    string
			settledAt sql.NullTime
		)
		if err := rows.Scan(
			&b.Race.Date, &b.Race.VenueID, &b.Race.RaceNumber, &combo,
			&b.Stake, &b.Price, &b.EVPercent, &status, &b.Return, &settledAt, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		b.Combination = race.Combination(combo)
		b.Status = race.BetStatus(status)
		if settledAt.Valid {
			t := settledAt.Time
			b.SettledAt = &t
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
