package services

import (
	"fmt"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/cryptox"
)

// SecretService hands out fresh deployment secrets wrapped under the master
// pair, ready to paste into the Enc configuration section.
type SecretService struct {
	master cryptox.KeyPair
}

func NewSecretService(master cryptox.KeyPair) *SecretService {
	return &SecretService{master: master}
}

func (s *SecretService) GenerateWrappedSecret() (cryptox.WrappedSecret, error) {
	w, err := cryptox.NewWrappedSecret(s.master)
	if err != nil {
		return cryptox.WrappedSecret{}, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return w, nil
}
