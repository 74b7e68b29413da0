package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/cryptox"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/auth"
	"github.com/dmitrijs2005/loremgate/internal/server/config"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	"github.com/dmitrijs2005/loremgate/internal/server/quota"
	"github.com/dmitrijs2005/loremgate/internal/server/storage/memory"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
	"github.com/stretchr/testify/require"
)

// countingPersister wraps the memory backend, counts saves and can be told
// to fail.
type countingPersister struct {
	*memory.Backend
	mu    sync.Mutex
	saves int
	fail  error
}

func (p *countingPersister) Save(ctx context.Context, snap *models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.saves++
	return p.Backend.Save(ctx, snap)
}

func (p *countingPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func (p *countingPersister) FailWith(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

// fakeGenerator returns numbered tokens so history contents are predictable.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeGenerator) Words(n int) []string {
	g.mu.Lock()
	g.calls++
	c := g.calls
	g.mu.Unlock()

	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d_%d", c, i)
	}
	return out
}

func (g *fakeGenerator) Paragraphs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.Join(g.Words(3), " ")
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	store     *store.Store
	persister *countingPersister
	codec     *cryptox.FieldCipher
	clock     *clock
	gen       *fakeGenerator
	sessions  *auth.Issuer

	reg     *RegistrationService
	meter   *MeteringService
	account *AccountService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	p := &countingPersister{Backend: memory.New()}
	st := store.New(p, logging.Discard())
	require.NoError(t, st.Load(context.Background()))

	codec, err := cryptox.NewFieldCipherFromPair(cryptox.GenerateKeyPair())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()

	clk := &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	gen := &fakeGenerator{}
	q := quota.New(cfg.DefaultDailyUnits)
	sessions := auth.NewIssuer("test-secret", time.Hour)

	h := &harness{
		store:     st,
		persister: p,
		codec:     codec,
		clock:     clk,
		gen:       gen,
		sessions:  sessions,
		reg:       NewRegistrationService(st, codec, cfg, logging.Discard()),
		meter:     NewMeteringService(st, q, gen, cfg, logging.Discard()),
		account:   NewAccountService(st, q, codec, sessions, logging.Discard()),
	}
	h.reg.now = clk.Now
	h.meter.now = clk.Now
	h.account.now = clk.Now
	return h
}

// register runs both registration phases and returns the app code.
func (h *harness) register(t *testing.T, name, email, password string) int {
	t.Helper()
	ctx := context.Background()

	ticket, err := h.reg.RequestRegistration(ctx, name, email, password)
	require.NoError(t, err)
	appCode, err := h.reg.ConfirmRegistration(ctx, ticket.Code)
	require.NoError(t, err)
	return appCode
}

func (h *harness) usage(appCode int) (rec models.UsageRecord, ok bool) {
	_ = h.store.View(func(st *store.State) error {
		if u := st.UsageFor(appCode); u != nil {
			rec, ok = *u, true
		}
		return nil
	})
	return rec, ok
}

func (h *harness) history(appCode int) []models.HistoryEntry {
	var out []models.HistoryEntry
	_ = h.store.View(func(st *store.State) error {
		out = st.HistoryFor(appCode)
		return nil
	})
	return out
}

// withCodes makes generateCode return the given values in order.
func withCodes(t *testing.T, codes ...int) {
	t.Helper()
	orig := generateCode
	t.Cleanup(func() { generateCode = orig })

	var mu sync.Mutex
	generateCode = func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return 0, errors.New("out of codes")
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}
