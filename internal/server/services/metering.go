package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/config"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	"github.com/dmitrijs2005/loremgate/internal/server/quota"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
)

// MeteringService serves generation requests against a client's daily
// allowance.
type MeteringService struct {
	store        *store.Store
	quota        *quota.Engine
	gen          TextGenerator
	historyLimit int
	logger       logging.Logger
	now          func() time.Time
}

func NewMeteringService(st *store.Store, q *quota.Engine, gen TextGenerator, cfg *config.Config, l logging.Logger) *MeteringService {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = common.DefaultHistoryLimit
	}
	return &MeteringService{
		store:        st,
		quota:        q,
		gen:          gen,
		historyLimit: limit,
		logger:       l.With("module", "metering"),
		now:          utcNow,
	}
}

// Words returns count words for appCode, charging count units.
func (s *MeteringService) Words(ctx context.Context, appCode, count int) ([]string, error) {
	if err := validCount(count); err != nil {
		return nil, err
	}
	units := quota.WordUnits(count)
	if err := s.admit(ctx, appCode, units); err != nil {
		return nil, err
	}

	words := s.gen.Words(count)
	if err := s.record(ctx, appCode, units, words); err != nil {
		return nil, err
	}
	return words, nil
}

// Paragraphs returns count paragraphs for appCode, charging five units per
// paragraph. History keeps the first words of the first paragraph.
func (s *MeteringService) Paragraphs(ctx context.Context, appCode, count int) ([]string, error) {
	if err := validCount(count); err != nil {
		return nil, err
	}
	units := quota.ParagraphUnits(count)
	if err := s.admit(ctx, appCode, units); err != nil {
		return nil, err
	}

	paragraphs := s.gen.Paragraphs(count)
	var tokens []string
	for _, p := range paragraphs {
		tokens = append(tokens, strings.Split(p, " ")...)
		if len(tokens) >= common.HistoryFirstWords {
			break
		}
	}
	if err := s.record(ctx, appCode, units, tokens); err != nil {
		return nil, err
	}
	return paragraphs, nil
}

func validCount(count int) error {
	if count < 1 {
		return fmt.Errorf("%w: count must be at least 1", common.ErrorInvalidArgument)
	}
	return nil
}

// admit checks the app code, rolls over stale allowances and charges units,
// all in one transaction. A rejection commits nothing.
func (s *MeteringService) admit(ctx context.Context, appCode, units int) error {
	err := s.store.Update(ctx, func(st *store.State) error {
		if st.ClientByAppCode(appCode) == nil {
			return fmt.Errorf("%w: unknown app code", common.ErrorUnauthorized)
		}
		now := s.now()
		s.quota.SweepDaily(st, now)
		return s.quota.Admit(st, appCode, units, now)
	})
	if err != nil {
		s.logger.Debug(ctx, "request not admitted", "app_code", appCode, "units", units, "error", err)
		return err
	}
	return nil
}

func (s *MeteringService) record(ctx context.Context, appCode, units int, tokens []string) error {
	first := tokens
	if len(first) > common.HistoryFirstWords {
		first = first[:common.HistoryFirstWords]
	}
	entry := models.HistoryEntry{
		RequestTime: s.now(),
		UnitsUsed:   units,
		FirstWords:  append([]string{}, first...),
	}
	return s.store.Update(ctx, func(st *store.State) error {
		st.RecordHistory(appCode, entry, s.historyLimit)
		return nil
	})
}
