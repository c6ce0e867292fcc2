package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/hackgods/salon-appointment-bot/internal/backendclient"
	"github.com/hackgods/salon-appointment-bot/internal/booking"
	"github.com/hackgods/salon-appointment-bot/internal/config"
	"github.com/hackgods/salon-appointment-bot/internal/logging"
)

// SimConfig drives a load run against a live backend.
type SimConfig struct {
	APIBaseURL   string
	BotToken     string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	HotSlot      bool // every booking targets the first free slot
	ServiceIDs   []int64
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	n := len(latencies)
	return sum / time.Duration(n), latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

type Simulator struct {
	config  SimConfig
	client  *backendclient.Client
	log     zerolog.Logger
	slots   []booking.Slot
	booked  sync.Map // slot key -> user id
	metrics struct {
		Booking   OperationMetrics
		FreeDates OperationMetrics
		Active    OperationMetrics
	}
	doubleBooked atomic.Int64
}

func main() {
	cfg, err := config.Load()
	logger := logging.New("simulate", cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	simCfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:"+cfg.HTTPPort),
		BotToken:     cfg.BotToken,
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		HotSlot:      getEnv("SIM_HOT_SLOT", "false") == "true",
		ServiceIDs:   []int64{1},
	}
	if ids := os.Getenv("SIM_SERVICE_IDS"); ids != "" {
		parsed, err := booking.ParseServiceIDs(ids)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid SIM_SERVICE_IDS")
		}
		simCfg.ServiceIDs = parsed
	}
	if err := validateConfig(simCfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	sim := &Simulator{
		config: simCfg,
		client: backendclient.New(simCfg.APIBaseURL, simCfg.BotToken, 10*time.Second),
		log:    logger,
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = sim.loadSlots(loadCtx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("load free slots")
	}

	logger.Info().
		Dur("duration", simCfg.Duration).
		Int("workers", simCfg.Workers).
		Int("free_slots", len(sim.slots)).
		Bool("hot_slot", simCfg.HotSlot).
		Msg("simulator starting")

	sim.Run()
	sim.PrintReport()

	if sim.doubleBooked.Load() > 0 {
		os.Exit(1)
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if cfg.Workers <= 0 {
		return errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("SIM_DURATION must be > 0")
	}
	return nil
}

func (s *Simulator) loadSlots(ctx context.Context) error {
	days, err := s.client.FreeDates(ctx)
	if err != nil {
		return err
	}
	for _, day := range days {
		for _, hour := range day.Hours {
			s.slots = append(s.slots, booking.Slot{Date: day.Date, Hour: hour})
		}
	}
	if len(s.slots) == 0 {
		return errors.New("no free slots in the booking window")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	faker := gofakeit.New(uint64(rng.Int63()))

	for ctx.Err() == nil {
		userID := int64(faker.Number(100000, 999999999))
		if rng.Float64() < s.config.BookingRatio {
			s.doBooking(ctx, rng, userID)
			continue
		}
		if rng.Intn(2) == 0 {
			s.doFreeDates(ctx)
		} else {
			s.doActive(ctx, userID)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, userID int64) {
	slot := s.slots[0]
	if !s.config.HotSlot {
		slot = s.slots[rng.Intn(len(s.slots))]
	}

	start := time.Now()
	_, err := s.client.CreateAppointment(ctx, booking.NewAppointment{
		UserID:     userID,
		ServiceIDs: s.config.ServiceIDs,
		Date:       slot.Date,
		Hour:       slot.Hour,
	})
	latency := time.Since(start)

	if ctx.Err() != nil {
		return
	}
	if err == nil {
		if prev, loaded := s.booked.LoadOrStore(slot.Key(), userID); loaded {
			s.doubleBooked.Add(1)
			s.log.Error().Str("slot", slot.Key()).Interface("first_user", prev).Int64("second_user", userID).Msg("slot booked twice")
		}
	}
	s.metrics.Booking.Record(latency, err == nil, booking.IsConflict(err))
}

func (s *Simulator) doFreeDates(ctx context.Context) {
	start := time.Now()
	_, err := s.client.FreeDates(ctx)
	if ctx.Err() != nil {
		return
	}
	s.metrics.FreeDates.Record(time.Since(start), err == nil, false)
}

func (s *Simulator) doActive(ctx context.Context, userID int64) {
	start := time.Now()
	_, err := s.client.ActiveAppointments(ctx, userID)
	if ctx.Err() != nil {
		return
	}
	s.metrics.Active.Record(time.Since(start), err == nil, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Free slots at start: %d\n", len(s.slots))
	fmt.Println()

	printOperationReport("Make appointment", &s.metrics.Booking)
	printOperationReport("Free dates", &s.metrics.FreeDates)
	printOperationReport("Active appointments", &s.metrics.Active)

	booked := 0
	s.booked.Range(func(_, _ any) bool {
		booked++
		return true
	})
	fmt.Printf("Slots booked: %d, double bookings: %d\n", booked, s.doubleBooked.Load())
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
