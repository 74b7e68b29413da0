// Package quota decides whether a metered request fits in a client's daily
// allowance and rolls allowances over at UTC day boundaries.
//
// Functions here only mutate the state they are given. They are meant to run
// inside store.Update, so a rejected admission is dropped together with the
// rest of the transaction.
package quota

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
)

type Engine struct {
	defaultMax int
}

// New returns an Engine giving fresh usage records defaultMax units a day.
// A non-positive value falls back to common.DefaultMaxDailyUnits.
func New(defaultMax int) *Engine {
	if defaultMax <= 0 {
		defaultMax = common.DefaultMaxDailyUnits
	}
	return &Engine{defaultMax: defaultMax}
}

func (e *Engine) DefaultMax() int { return e.defaultMax }

// WordUnits is the cost of n words.
func WordUnits(n int) int { return n }

// ParagraphUnits is the cost of n paragraphs.
func ParagraphUnits(n int) int { return n * common.ParagraphUnitCost }

// Admit charges units to appCode's daily allowance.
//
// A client without a usage record gets one with the default allowance. A
// record whose window never started, or started before yesterday (UTC), is
// reset to start now. If the charge would exceed the allowance Admit returns
// common.ErrorQuotaExceeded; the record may already have been created or
// reset at that point, which is why callers must discard the state on error.
func (e *Engine) Admit(st *store.State, appCode, units int, now time.Time) error {
	if units < 0 {
		return fmt.Errorf("%w: negative units", common.ErrorInvalidArgument)
	}

	rec := st.UsageFor(appCode)
	if rec == nil {
		rec = st.AddUsage(models.UsageRecord{
			AppCode:              appCode,
			MaxAllowedDailyUnits: e.defaultMax,
		})
	}

	if rec.FirstRequestAt == nil || day(*rec.FirstRequestAt).Before(day(now).AddDate(0, 0, -1)) {
		resetWindow(rec, now)
	}

	if rec.CurrentDailyUnits+units > rec.MaxAllowedDailyUnits {
		return fmt.Errorf("%w: %d used, %d requested, %d allowed",
			common.ErrorQuotaExceeded, rec.CurrentDailyUnits, units, rec.MaxAllowedDailyUnits)
	}

	rec.CurrentDailyUnits += units
	return nil
}

// SweepDaily starts a new window for every record whose window never
// started or started before today (UTC). It returns how many were reset.
func (e *Engine) SweepDaily(st *store.State, now time.Time) int {
	today := day(now)
	n := 0
	for i := range st.Usage {
		rec := &st.Usage[i]
		if rec.FirstRequestAt == nil || day(*rec.FirstRequestAt).Before(today) {
			resetWindow(rec, now)
			n++
		}
	}
	return n
}

func resetWindow(rec *models.UsageRecord, now time.Time) {
	t := now
	rec.FirstRequestAt = &t
	rec.CurrentDailyUnits = 0
}

// day truncates t to midnight UTC.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
