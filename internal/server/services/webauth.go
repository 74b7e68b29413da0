package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	"github.com/dmitrijs2005/loremgate/internal/server/quota"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
	"github.com/dmitrijs2005/loremgate/internal/webcode"
)

// LoginResult is returned by a successful web login.
type LoginResult struct {
	Message      string
	SessionToken string
}

// AccountService authenticates the web companion and manages an existing
// client's account.
type AccountService struct {
	store    *store.Store
	quota    *quota.Engine
	codec    FieldCodec
	sessions SessionIssuer
	logger   logging.Logger
	now      func() time.Time
}

// NewAccountService wires the service. sessions may be nil, in which case
// logins succeed without a session token.
func NewAccountService(st *store.Store, q *quota.Engine, codec FieldCodec, sessions SessionIssuer, l logging.Logger) *AccountService {
	return &AccountService{
		store:    st,
		quota:    q,
		codec:    codec,
		sessions: sessions,
		logger:   l.With("module", "account"),
		now:      utcNow,
	}
}

// WebLogin checks webCode against the client named accountName (case
// insensitive).
func (s *AccountService) WebLogin(ctx context.Context, accountName string, webCode int32) (*LoginResult, error) {
	var client models.Client
	err := s.store.View(func(st *store.State) error {
		c := st.ClientByNameFold(accountName)
		if c == nil {
			return common.ErrorUnauthorized
		}
		client = *c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.verifyWebCode(client, webCode); err != nil {
		s.logger.Warn(ctx, "web login rejected", "account", accountName)
		return nil, err
	}

	res := &LoginResult{Message: "Login allowed."}
	if s.sessions != nil {
		tok, err := s.sessions.Issue(client.AccountName, client.AppCode)
		if err != nil {
			return nil, fmt.Errorf("%w: issue session: %v", common.ErrorInternal, err)
		}
		res.SessionToken = tok
	}
	return res, nil
}

// GetClientInfo authenticates like WebLogin and returns the client's
// profile. Stale daily allowances are rolled over first, so usage shown
// after midnight UTC is zero.
func (s *AccountService) GetClientInfo(ctx context.Context, accountName string, webCode int32) (*models.ClientInfo, error) {
	return s.clientInfo(ctx, func(st *store.State) (*models.Client, string, error) {
		c := st.ClientByNameFold(accountName)
		if c == nil {
			return nil, "", common.ErrorUnauthorized
		}
		email, err := s.verifyWebCode(*c, webCode)
		if err != nil {
			return nil, "", err
		}
		return c, email, nil
	})
}

// GetClientInfoBySession returns the profile for a verified session token.
func (s *AccountService) GetClientInfoBySession(ctx context.Context, token string) (*models.ClientInfo, error) {
	if s.sessions == nil {
		return nil, common.ErrorUnauthorized
	}
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}

	return s.clientInfo(ctx, func(st *store.State) (*models.Client, string, error) {
		c := st.ClientByNameFold(claims.AccountName)
		if c == nil || c.AppCode != claims.AppCode {
			return nil, "", common.ErrorUnauthorized
		}
		email, err := s.codec.Decrypt(c.AccountEmail)
		if err != nil {
			return nil, "", fmt.Errorf("%w: decrypt email: %v", common.ErrorInternal, err)
		}
		return c, email, nil
	})
}

// Deregister removes the client holding appCode and its usage record once
// password matches. Request history is kept.
func (s *AccountService) Deregister(ctx context.Context, appCode int, password string) error {
	err := s.store.Update(ctx, func(st *store.State) error {
		c := st.ClientByAppCode(appCode)
		if c == nil {
			return fmt.Errorf("%w: client", common.ErrorNotFound)
		}

		stored, err := s.codec.Decrypt(c.AccountPassword)
		if err != nil {
			return fmt.Errorf("%w: decrypt password: %v", common.ErrorInternal, err)
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
			return common.ErrorUnauthorized
		}

		st.RemoveClient(appCode)
		st.RemoveUsage(appCode)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "client deregistered", "app_code", appCode)
	return nil
}

type clientLookup func(st *store.State) (*models.Client, string, error)

func (s *AccountService) clientInfo(ctx context.Context, lookup clientLookup) (*models.ClientInfo, error) {
	var info *models.ClientInfo
	err := s.store.Update(ctx, func(st *store.State) error {
		swept := s.quota.SweepDaily(st, s.now())

		c, email, err := lookup(st)
		if err != nil {
			return err
		}
		info = buildClientInfo(st, c, email)

		if swept == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Warn(ctx, "client info rejected")
		}
		return nil, err
	}
	return info, nil
}

// verifyWebCode decrypts the client's credentials and compares the derived
// web code. It returns the plaintext email on success.
func (s *AccountService) verifyWebCode(c models.Client, webCode int32) (string, error) {
	email, err := s.codec.Decrypt(c.AccountEmail)
	if err != nil {
		return "", fmt.Errorf("%w: decrypt email: %v", common.ErrorInternal, err)
	}
	password, err := s.codec.Decrypt(c.AccountPassword)
	if err != nil {
		return "", fmt.Errorf("%w: decrypt password: %v", common.ErrorInternal, err)
	}

	expected := webcode.Derive(c.AccountName, email, password)
	if subtle.ConstantTimeEq(expected, webCode) != 1 {
		return "", common.ErrorUnauthorized
	}
	return email, nil
}

func buildClientInfo(st *store.State, c *models.Client, email string) *models.ClientInfo {
	history := st.HistoryFor(c.AppCode)
	if history == nil {
		history = []models.HistoryEntry{}
	}

	info := &models.ClientInfo{
		AccountName:      c.AccountName,
		AccountEmail:     email,
		AppCode:          c.AppCode,
		RegistrationDate: c.RegistrationDate,
		RequestHistory:   history,
	}
	if u := st.UsageFor(c.AppCode); u != nil {
		info.UsedTokens = u.CurrentDailyUnits
		info.MaxDailyTokens = u.MaxAllowedDailyUnits
	}
	if len(history) > 0 {
		total := 0
		for _, h := range history {
			total += h.UnitsUsed
		}
		info.AverageTokensPerRequest = float32(total) / float32(len(history))
	}
	return info
}
