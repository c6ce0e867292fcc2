package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/salon-appointment-bot/internal/booking"
	"github.com/hackgods/salon-appointment-bot/internal/config"
	"github.com/hackgods/salon-appointment-bot/internal/db"
	"github.com/hackgods/salon-appointment-bot/internal/logging"
)

func main() {
	cfg, err := config.Load()
	logger := logging.New("seed", cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}
	if cfg.PostgresDSN == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedServices(context.Background(), pool, logger, getInt("SEED_EXTRA_SERVICES", 0)); err != nil {
		logger.Fatal().Err(err).Msg("seed services")
	}
	if n := getInt("SEED_DEMO_APPOINTMENTS", 0); n > 0 {
		hours := booking.Hours{Open: cfg.Salon.OpenHour, Close: cfg.Salon.CloseHour}
		if err := seedAppointments(context.Background(), pool, logger, n, hours, cfg.Salon.WindowDays); err != nil {
			logger.Fatal().Err(err).Msg("seed appointments")
		}
	}

	logger.Info().Msg("seed complete")
}

// seedServices writes the default catalogue with stable ids, then appends
// extra generated services after them.
func seedServices(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, extra int) error {
	logger.Info().Int("catalogue", len(booking.DefaultCatalogue)).Int("extra", extra).Msg("seeding services")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, svc := range booking.DefaultCatalogue {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, title, price)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, price = EXCLUDED.price
		`, svc.ID, svc.Title, svc.Price)
		if err != nil {
			return err
		}
	}

	// explicit ids leave the sequence behind
	if _, err := tx.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('services', 'id'), (SELECT MAX(id) FROM services))
	`); err != nil {
		return err
	}

	for i := 0; i < extra; i++ {
		title := gofakeit.AdjectiveDescriptive() + " " + gofakeit.HipsterWord() + " treatment"
		price := gofakeit.Number(10, 150)
		if _, err := tx.Exec(ctx, `INSERT INTO services (title, price) VALUES ($1, $2)`, title, price); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedAppointments books random slots across the booking window. Slots that
// are already taken are skipped.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int, hours booking.Hours, windowDays int) error {
	logger.Info().Int("count", count).Msg("seeding demo appointments")

	rows, err := pool.Query(ctx, `SELECT id FROM services ORDER BY id`)
	if err != nil {
		return err
	}
	var serviceIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		serviceIDs = append(serviceIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(serviceIDs) == 0 {
		logger.Warn().Msg("no services, skipping appointments")
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := booking.DateOf(time.Now().UTC())
	inserted := 0
	for i := 0; i < count; i++ {
		date := today.AddDate(0, 0, gofakeit.Number(1, max(windowDays-1, 1)))
		hour := gofakeit.Number(hours.Open, hours.Close-1)

		order := indexes(len(serviceIDs))
		gofakeit.ShuffleInts(order)
		picked := make([]int64, 0, 2)
		for _, idx := range order[:min(gofakeit.Number(1, 2), len(order))] {
			picked = append(picked, serviceIDs[idx])
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO appointments (user_id, services_ids, appointment_date, appointment_time)
			VALUES ($1, $2, $3, make_time($4, 0, 0))
			ON CONFLICT ON CONSTRAINT appointments_slot_key DO NOTHING
		`, int64(gofakeit.Number(100000, 999999999)), picked, date, hour)
		if err != nil {
			return err
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	logger.Info().Int("inserted", inserted).Int("skipped", count-inserted).Msg("demo appointments seeded")
	return nil
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
