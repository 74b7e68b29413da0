package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/cryptox"
	"github.com/dmitrijs2005/loremgate/internal/lipsum"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/auth"
	"github.com/dmitrijs2005/loremgate/internal/server/config"
	"github.com/dmitrijs2005/loremgate/internal/server/metrics"
	"github.com/dmitrijs2005/loremgate/internal/server/quota"
	"github.com/dmitrijs2005/loremgate/internal/server/services"
	"github.com/dmitrijs2005/loremgate/internal/server/storage/memory"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler http.Handler
	metrics *metrics.Metrics
	master  cryptox.KeyPair
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RegistrationRate = 0
	for _, f := range tweak {
		f(cfg)
	}

	st := store.New(memory.New(), logging.Discard())
	require.NoError(t, st.Load(context.Background()))

	master := cryptox.GenerateKeyPair()
	w, err := cryptox.NewWrappedSecret(master)
	require.NoError(t, err)
	codec, err := cryptox.NewFieldCipher(w, master)
	require.NoError(t, err)

	q := quota.New(cfg.DefaultDailyUnits)
	sessions := auth.NewIssuer("test-secret", time.Hour)
	m := metrics.New()

	srv := NewServer(Services{
		Registration: services.NewRegistrationService(st, codec, cfg, logging.Discard()),
		Metering:     services.NewMeteringService(st, q, lipsum.NewSeeded(7), cfg, logging.Discard()),
		Accounts:     services.NewAccountService(st, q, codec, sessions, logging.Discard()),
		Secrets:      services.NewSecretService(master),
	}, m, logging.Discard())

	return &testEnv{handler: srv.Handler(cfg), metrics: m, master: master}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, name, email, password string) int {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/registerClient", map[string]string{
		"AccountName": name, "AccountEmail": email, "AccountPassword": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ticket registrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))

	rec = e.do(t, http.MethodPost, "/confirmClientRegistration", map[string]int{"Code": ticket.Code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var conf confirmRegistrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conf))
	return conf.AppCode
}

func wordsURL(kind string, appCode, count int) string {
	return "/" + kind + "?count=" + strconv.Itoa(count) + "&appCode=" + strconv.Itoa(appCode)
}
