package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/cache"
	"FinSignal/pkg/logger"
)

const liveKeyTTL = 48 * time.Hour

// JSONLLiveStore appends live bars to one JSON-lines file per trading day,
// real_time_data_YYYYMMDD.jsonl. A (ticker, datetime) pair is stored once;
// membership is tracked in the cache set live:<day>, so a Redis-backed cache
// shares the view between fetchers.
type JSONLLiveStore struct {
	dir   string
	cache cache.Service
	log   *logger.Logger

	mu   sync.Mutex
	day  string
	file *os.File
}

var _ domrepo.LiveStore = (*JSONLLiveStore)(nil)

func NewJSONLLiveStore(dir string, c cache.Service, l *logger.Logger) (*JSONLLiveStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create live dir %s: %w", dir, err)
	}
	if l == nil {
		l = logger.Nop()
	}
	return &JSONLLiveStore{dir: dir, cache: c, log: l.With(logger.String("component", "live_store"))}, nil
}

// DayFile returns the path of the file holding bars for day (YYYYMMDD).
func (s *JSONLLiveStore) DayFile(day string) string {
	return filepath.Join(s.dir, "real_time_data_"+day+".jsonl")
}

// Append stores bar unless its key was already seen for the day.
func (s *JSONLLiveStore) Append(ctx context.Context, bar models.Bar) (bool, error) {
	if err := bar.Validate(); err != nil {
		return false, fmt.Errorf("live bar %s: %w", bar.Ticker, err)
	}
	day := strings.ReplaceAll(bar.Date, "-", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotate(ctx, day); err != nil {
		return false, err
	}

	added, err := s.cache.AddToSet(ctx, liveSetKey(day), bar.Key(), liveKeyTTL)
	if err != nil {
		return false, fmt.Errorf("dedupe %s: %w", bar.Key(), err)
	}
	if !added {
		s.log.Debug("duplicate live bar ignored", logger.String("ticker", bar.Ticker), logger.String("datetime", bar.Datetime))
		return false, nil
	}

	line, err := json.Marshal(bar)
	if err != nil {
		return false, s.forget(ctx, day, bar, fmt.Errorf("encode live bar: %w", err))
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		err = fmt.Errorf("append %s: %w", s.file.Name(), err)
		// reopened on the next append
		_ = s.closeFile()
		return false, s.forget(ctx, day, bar, err)
	}
	return true, nil
}

// forget drops bar from the dedupe set after a failed write so a retry stores it.
func (s *JSONLLiveStore) forget(ctx context.Context, day string, bar models.Bar, cause error) error {
	if err := s.cache.RemoveFromSet(context.WithoutCancel(ctx), liveSetKey(day), bar.Key()); err != nil {
		return errors.Join(cause, fmt.Errorf("undo dedupe %s: %w", bar.Key(), err))
	}
	return cause
}

// ReadDay returns every bar stored for day in append order.
func (s *JSONLLiveStore) ReadDay(day string) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.DayFile(day))
	if err != nil {
		return nil, fmt.Errorf("read live day %s: %w", day, err)
	}
	return DecodeBars(data)
}

// Close closes the current day file.
func (s *JSONLLiveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFile()
}

// rotate opens the file for day and seeds the dedupe set from its contents.
func (s *JSONLLiveStore) rotate(ctx context.Context, day string) error {
	if s.file != nil && s.day == day {
		return nil
	}
	if err := s.closeFile(); err != nil {
		s.log.Warn("close previous live file failed", logger.Error(err))
	}

	path := s.DayFile(day)
	if data, err := os.ReadFile(path); err == nil {
		bars, err := DecodeBars(data)
		if err != nil {
			return fmt.Errorf("existing live file %s: %w", path, err)
		}
		for _, b := range bars {
			if _, err := s.cache.AddToSet(ctx, liveSetKey(day), b.Key(), liveKeyTTL); err != nil {
				return fmt.Errorf("seed dedupe set: %w", err)
			}
		}
		s.log.Info("live file reopened", logger.String("path", path), logger.Int("bars", len(bars)))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	s.file = f
	s.day = day
	return nil
}

func (s *JSONLLiveStore) closeFile() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.day = ""
	return err
}

func liveSetKey(day string) string {
	return cache.Key("live", day)
}
