package game

import (
	"context"
	"log/slog"
	"time"

	"example.com/stuckem/internal/dependencies/clock"
	"github.com/google/uuid"
)

type TableConfig struct {
	// Session holds the defaults every new table starts from.
	Session        Options
	ConfirmTimeout time.Duration
	IdleTimeout    time.Duration // 0 => tables are never reaped
}

// TableService creates hosted tables, hands them out by id and reaps the
// ones nobody has touched for a while.
type TableService struct {
	cfg   TableConfig
	store TableStore
	clk   clock.Clock
	log   *slog.Logger
	newID func() string
}

func NewTableService(cfg TableConfig, store TableStore, log *slog.Logger) *TableService {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Session.Clock == nil {
		cfg.Session.Clock = clock.New()
	}
	return &TableService{
		cfg:   cfg,
		store: store,
		clk:   cfg.Session.Clock,
		log:   log,
		newID: uuid.NewString,
	}
}

// Create starts a new table with a fresh id and runs its loop.
func (s *TableService) Create() *Table {
	for {
		id := s.newID()
		t := NewTable(id, s.cfg.Session, s.cfg.ConfirmTimeout, s.log)
		if err := s.store.Create(id, t); err != nil {
			s.log.Warn("table id collision", "table", id, "err", err)
			continue
		}
		go t.Run()
		s.log.Info("table created", "table", id, "tables", s.store.Len())
		return t
	}
}

func (s *TableService) Get(tableID string) (*Table, bool) {
	if tableID == "" {
		return nil, false
	}
	return s.store.Get(tableID)
}

// Reap closes every table idle since before now minus the idle timeout and
// returns how many it closed.
func (s *TableService) Reap(now time.Time) int {
	if s.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-s.cfg.IdleTimeout)
	n := 0
	for _, t := range s.store.List() {
		if !t.LastActive().Before(cutoff) {
			continue
		}
		if _, ok := s.store.Delete(t.ID()); ok {
			t.Close()
			n++
		}
	}
	if n > 0 {
		s.log.Info("reaped idle tables", "count", n)
	}
	return n
}

// RunReaper reaps idle tables every half idle timeout until ctx is done.
func (s *TableService) RunReaper(ctx context.Context) error {
	if s.cfg.IdleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Reap(s.clk.Now())
		}
	}
}

// CloseAll stops every table.
func (s *TableService) CloseAll() {
	for _, t := range s.store.List() {
		if _, ok := s.store.Delete(t.ID()); ok {
			t.Close()
		}
	}
}
