// Package server wires the loremgate components together and runs the HTTP
// gateway until the process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/loremgate/internal/cryptox"
	"github.com/dmitrijs2005/loremgate/internal/lipsum"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/auth"
	"github.com/dmitrijs2005/loremgate/internal/server/config"
	"github.com/dmitrijs2005/loremgate/internal/server/httpapi"
	"github.com/dmitrijs2005/loremgate/internal/server/metrics"
	"github.com/dmitrijs2005/loremgate/internal/server/quota"
	"github.com/dmitrijs2005/loremgate/internal/server/services"
	"github.com/dmitrijs2005/loremgate/internal/server/storage"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
)

// logOutput is where the server logs go; tests redirect it.
var logOutput io.Writer = os.Stdout

type App struct {
	config  *config.Config
	logger  logging.Logger
	backend storage.Backend
	handler http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logOutput, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	master, err := masterKey(c)
	if err != nil {
		return nil, err
	}
	codec, err := fieldCipher(c, master)
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	m := metrics.New()
	st := store.New(backend, logger, store.WithPersistObserver(m.ObservePersist))
	if err := st.Load(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("snapshot load error: %w", err)
	}

	q := quota.New(c.DefaultDailyUnits)
	var sessions services.SessionIssuer
	if c.SessionSecret != "" {
		sessions = auth.NewIssuer(c.SessionSecret, c.SessionTTL)
	}

	api := httpapi.NewServer(httpapi.Services{
		Registration: services.NewRegistrationService(st, codec, c, logger),
		Metering:     services.NewMeteringService(st, q, lipsum.New(), c, logger),
		Accounts:     services.NewAccountService(st, q, codec, sessions, logger),
		Secrets:      services.NewSecretService(master),
	}, m, logger)

	return &App{
		config:  c,
		logger:  logger,
		backend: backend,
		handler: api.Handler(c),
	}, nil
}

// masterKey returns the pair that unwraps the deployment secret: raw
// material when configured, otherwise derived from the passphrase.
func masterKey(c *config.Config) (cryptox.KeyPair, error) {
	if c.MasterKey != "" || c.MasterIV != "" {
		if c.MasterKey == "" || c.MasterIV == "" {
			return cryptox.KeyPair{}, errors.New("master key and master iv must be set together")
		}
		return cryptox.KeyPair{Key: c.MasterKey, IV: c.MasterIV}, nil
	}
	if c.MasterPassphrase == "" {
		return cryptox.KeyPair{}, errors.New("no master key material: set master key/iv or a master passphrase")
	}
	if c.MasterSalt == "" {
		return cryptox.KeyPair{}, errors.New("master passphrase needs a salt")
	}
	return cryptox.MasterFromPassphrase([]byte(c.MasterPassphrase), []byte(c.MasterSalt)), nil
}

func fieldCipher(c *config.Config, master cryptox.KeyPair) (*cryptox.FieldCipher, error) {
	if c.EncKey == "" || c.EncIV == "" {
		return nil, errors.New("deployment secret (Enc key and iv) is not configured; generate one with keytool gen")
	}
	fc, err := cryptox.NewFieldCipher(cryptox.WrappedSecret{Key: c.EncKey, IV: c.EncIV}, master)
	if err != nil {
		return nil, fmt.Errorf("deployment secret does not unwrap under the master key: %w", err)
	}
	return fc, nil
}

func (app *App) initSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives,
// then shuts down gracefully and closes the snapshot backend.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := app.initSignalHandler(ctx)
	defer stop()

	ln, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		_ = app.backend.Close()
		return fmt.Errorf("listen %s: %w", app.config.HTTPAddr, err)
	}
	return app.serve(ctx, ln)
}

func (app *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      app.handler,
		ReadTimeout:  app.config.ReadTimeout,
		WriteTimeout: app.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	if err := app.backend.Close(); err != nil {
		app.logger.Error(context.Background(), "backend close error", "error", err)
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
