// Package numerator issues sequential document numbers backed by a
// sys_sequences table.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Strategy selects how numbers are allocated.
type Strategy int

const (
	// StrategyStrict takes every number from the database with a single
	// UPSERT ... RETURNING. Gap-free, one round trip per document.
	StrategyStrict Strategy = iota

	// StrategyCached reserves a block of numbers and hands them out from
	// memory. Faster under load; a restart abandons the unused tail of
	// the block, leaving gaps.
	StrategyCached
)

// Options tunes number allocation per call.
type Options struct {
	Strategy Strategy
	// RangeSize is the block size for StrategyCached (default 50).
	RangeSize int64
}

// DefaultOptions returns the strict strategy.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Config describes the shape of a document number series.
type Config struct {
	// Prefix identifies the series ("MI", "GRN").
	Prefix string

	// IncludeYear puts the period year between prefix and counter.
	IncludeYear bool

	// PadWidth is the minimum counter width (default 5).
	PadWidth int

	// ResetPeriod restarts the counter: "year", "month" or "never".
	ResetPeriod string
}

// DefaultConfig returns a yearly-reset PREFIX-YYYY-NNNNN series.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// Querier is the slice of pgx the service needs. A pool, a transaction
// or a test double all satisfy it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type block struct {
	next int64
	max  int64
}

// Service allocates document numbers. Safe for concurrent use.
type Service struct {
	querier Querier

	mu     sync.Mutex
	blocks map[string]*block
}

// New creates a numbering service over the given querier.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		blocks:  make(map[string]*block),
	}
}

// GetNextNumber returns the next formatted number for the series,
// e.g. MI-2026-00001. period determines the reset bucket.
func (s *Service) GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	key := seriesKey(cfg, period)

	var (
		num int64
		err error
	)
	if opts.Strategy == StrategyCached {
		num, err = s.nextFromBlock(ctx, key, opts.RangeSize)
	} else {
		num, err = s.nextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}
	return format(cfg, period, num), nil
}

func (s *Service) nextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("next number for %s: %w", key, err)
	}
	return num, nil
}

func (s *Service) nextFromBlock(ctx context.Context, key string, size int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.blocks[key]
	if b == nil {
		b = &block{}
		s.blocks[key] = b
	}

	if b.next >= b.max {
		if size <= 0 {
			size = 50
		}
		// current_val holds the last allocated number; bumping it by
		// size reserves (old+1 .. old+size) for this process.
		var reservedMax int64
		err := s.querier.QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`, key, size).Scan(&reservedMax)
		if err != nil {
			return 0, fmt.Errorf("reserve block for %s: %w", key, err)
		}
		b.next = reservedMax - size
		b.max = reservedMax
	}

	b.next++
	return b.next, nil
}

func seriesKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

func format(cfg Config, period time.Time, num int64) string {
	width := cfg.PadWidth
	if width == 0 {
		width = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), width, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, width, num)
}

// ParseNumber extracts the counter from a formatted number, -1 on failure.
// The counter is always the segment after the last dash, whether or not
// the series includes a year.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 || i == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil || num < 0 {
		return -1
	}
	return num
}
