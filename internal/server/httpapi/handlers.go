package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/quota"
	"github.com/dmitrijs2005/loremgate/internal/server/services"
)

const maxBodyBytes = 1 << 16

type generateFunc func(ctx context.Context, appCode, count int) ([]string, error)

func (s *Server) getWords(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, "words", quota.WordUnits, s.svc.Metering.Words)
}

func (s *Server) getParagraphs(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, "paragraphs", quota.ParagraphUnits, s.svc.Metering.Paragraphs)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, kind string, cost func(int) int, fn generateFunc) {
	count, err := queryInt(r, "count")
	if err != nil {
		s.metrics.RecordAdmission(kind, 0, err)
		s.writeError(w, r, err)
		return
	}
	appCode, err := queryInt(r, "appCode")
	if err != nil {
		s.metrics.RecordAdmission(kind, 0, err)
		s.writeError(w, r, err)
		return
	}

	out, err := fn(r.Context(), appCode, count)
	s.metrics.RecordAdmission(kind, cost(count), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) registerClient(w http.ResponseWriter, r *http.Request) {
	var req registerClientRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ticket, err := s.svc.Registration.RequestRegistration(r.Context(), req.AccountName, req.AccountEmail, req.AccountPassword)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordRegistration("requested")
	writeJSON(w, http.StatusOK, toRegistrationResponse(ticket))
}

func (s *Server) updateRegistrationCode(w http.ResponseWriter, r *http.Request) {
	oldCode, err := queryInt(r, "oldCode")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ticket, err := s.svc.Registration.RefreshRegistrationCode(r.Context(), oldCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordRegistration("refreshed")
	writeJSON(w, http.StatusOK, toRegistrationResponse(ticket))
}

func (s *Server) confirmRegistration(w http.ResponseWriter, r *http.Request) {
	var req confirmRegistrationRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	appCode, err := s.svc.Registration.ConfirmRegistration(r.Context(), req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordRegistration("confirmed")
	s.logger.Info(r.Context(), "client registered", "app_code", appCode)
	writeJSON(w, http.StatusOK, confirmRegistrationResponse{AppCode: appCode})
}

func (s *Server) generateSecret(w http.ResponseWriter, r *http.Request) {
	secret, err := s.svc.Secrets.GenerateWrappedSecret()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, secret)
}

func (s *Server) deregister(w http.ResponseWriter, r *http.Request) {
	var req deregisterRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Accounts.Deregister(r.Context(), req.AppCode, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordRegistration("deregistered")
	writeJSON(w, http.StatusOK, "Client deregistered successfully.")
}

func (s *Server) webLogin(w http.ResponseWriter, r *http.Request) {
	var req webCodeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.Accounts.WebLogin(r.Context(), req.AccountName, *req.WebCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Message: res.Message, SessionToken: res.SessionToken})
}

func (s *Server) getClientInfo(w http.ResponseWriter, r *http.Request) {
	var req webCodeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	info, err := s.svc.Accounts.GetClientInfo(r.Context(), req.AccountName, *req.WebCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) clientInfoBySession(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized))
		return
	}

	info, err := s.svc.Accounts.GetClientInfoBySession(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// decode reads a JSON body into dst and validates it. Every failure is an
// InvalidArgument.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", common.ErrorInvalidArgument, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInvalidArgument, err)
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", common.ErrorInvalidArgument, name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorInvalidArgument, name)
	}
	return v, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.SessionHeaderName)
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func toRegistrationResponse(t *services.RegistrationTicket) registrationResponse {
	return registrationResponse{Code: t.Code, ExpiresAt: t.ExpiresAt}
}
