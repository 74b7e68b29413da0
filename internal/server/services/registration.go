package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/config"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
)

// RegistrationTicket is handed back when a registration code is issued.
type RegistrationTicket struct {
	Code      int
	ExpiresAt time.Time
}

// RegistrationService runs the two-phase signup: a pending registration
// with a short-lived code, then confirmation into an active client.
type RegistrationService struct {
	store  *store.Store
	codec  FieldCodec
	ttl    time.Duration
	logger logging.Logger
	now    func() time.Time
}

func NewRegistrationService(st *store.Store, codec FieldCodec, cfg *config.Config, l logging.Logger) *RegistrationService {
	ttl := cfg.RegistrationTTL
	if ttl <= 0 {
		ttl = common.DefaultRegistrationTTL
	}
	return &RegistrationService{
		store:  st,
		codec:  codec,
		ttl:    ttl,
		logger: l.With("module", "registration"),
		now:    utcNow,
	}
}

// RequestRegistration records a pending registration for name and returns
// its code. Only an active client with exactly the same name conflicts;
// earlier unconfirmed requests for the name do not.
func (s *RegistrationService) RequestRegistration(ctx context.Context, name, email, password string) (*RegistrationTicket, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: account name, email and password are required", common.ErrorInvalidArgument)
	}

	encEmail, err := s.codec.Encrypt(email)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt email: %v", common.ErrorInternal, err)
	}
	encPassword, err := s.codec.Encrypt(password)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt password: %v", common.ErrorInternal, err)
	}

	var ticket *RegistrationTicket
	err = s.store.Update(ctx, func(st *store.State) error {
		if st.ClientByName(name) != nil {
			return fmt.Errorf("%w: account %q already exists", common.ErrorConflict, name)
		}

		now := s.now()
		if n := st.SweepExpiredPending(now); n > 0 {
			s.logger.Debug(ctx, "expired registrations purged", "count", n)
		}

		code, err := generateCode()
		if err != nil {
			return fmt.Errorf("%w: generate code: %v", common.ErrorInternal, err)
		}

		p := models.PendingRegistration{
			Account: models.Account{
				AccountName:      name,
				AccountEmail:     encEmail,
				AccountPassword:  encPassword,
				RegistrationDate: now,
			},
			RegistrationCode:          code,
			RegistrationCodeExpiresAt: now.Add(s.ttl),
		}
		st.AddPending(p)

		ticket = &RegistrationTicket{Code: code, ExpiresAt: p.RegistrationCodeExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "registration requested", "account", name)
	return ticket, nil
}

// RefreshRegistrationCode replaces oldCode with a new code and a fresh
// expiry. The old code's own expiry is not checked: a pending registration
// that has not been swept yet can still be refreshed.
func (s *RegistrationService) RefreshRegistrationCode(ctx context.Context, oldCode int) (*RegistrationTicket, error) {
	var ticket *RegistrationTicket
	err := s.store.Update(ctx, func(st *store.State) error {
		p := st.PendingByCode(oldCode)
		if p == nil {
			return fmt.Errorf("%w: registration code", common.ErrorNotFound)
		}

		code, err := generateCode()
		if err != nil {
			return fmt.Errorf("%w: generate code: %v", common.ErrorInternal, err)
		}
		p.RegistrationCode = code
		p.RegistrationCodeExpiresAt = s.now().Add(s.ttl)

		ticket = &RegistrationTicket{Code: code, ExpiresAt: p.RegistrationCodeExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// ConfirmRegistration turns the pending registration holding code into an
// active client and returns the client's new app code. The stored email
// and password ciphertexts are carried over as they are.
func (s *RegistrationService) ConfirmRegistration(ctx context.Context, code int) (int, error) {
	var appCode int
	err := s.store.Update(ctx, func(st *store.State) error {
		now := s.now()
		st.SweepExpiredPending(now)

		p := st.PendingByCode(code)
		if p == nil || p.Expired(now) {
			return fmt.Errorf("%w: invalid or expired registration code", common.ErrorNotFound)
		}

		var err error
		appCode, err = generateCode()
		if err != nil {
			return fmt.Errorf("%w: generate code: %v", common.ErrorInternal, err)
		}

		acct := p.Account
		acct.RegistrationDate = now
		st.AddClient(models.Client{Account: acct, AppCode: appCode})
		st.RemovePending(code)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "client registered", "app_code", appCode)
	return appCode, nil
}
