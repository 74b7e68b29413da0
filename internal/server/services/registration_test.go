package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistration_RequestAndConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := h.clock.Now()

	ticket, err := h.reg.RequestRegistration(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ticket.Code, common.CodeMin)
	assert.Less(t, ticket.Code, common.CodeMax)
	assert.Equal(t, start.Add(15*time.Minute), ticket.ExpiresAt)

	var pending models.PendingRegistration
	_ = h.store.View(func(st *store.State) error {
		p := st.PendingByCode(ticket.Code)
		require.NotNil(t, p)
		pending = *p
		return nil
	})
	assert.NotEqual(t, "a@x.com", pending.AccountEmail, "email is stored encrypted")
	assert.NotEqual(t, "pw1", pending.AccountPassword, "password is stored encrypted")

	h.clock.Advance(time.Minute)
	appCode, err := h.reg.ConfirmRegistration(ctx, ticket.Code)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, appCode, common.CodeMin)

	_ = h.store.View(func(st *store.State) error {
		c := st.ClientByAppCode(appCode)
		require.NotNil(t, c)
		assert.Equal(t, "alice", c.AccountName)
		assert.Equal(t, pending.AccountEmail, c.AccountEmail, "ciphertext is carried over")
		assert.Equal(t, pending.AccountPassword, c.AccountPassword)
		assert.Equal(t, start.Add(time.Minute), c.RegistrationDate)
		assert.Nil(t, st.PendingByCode(ticket.Code))
		return nil
	})

	email, err := h.codec.Decrypt(pending.AccountEmail)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
	assert.Equal(t, 2, h.persister.Saves())
}

func TestRegistration_RequiresFields(t *testing.T) {
	h := newHarness(t)
	for _, in := range [][3]string{{"", "e", "p"}, {"n", "", "p"}, {"n", "e", ""}} {
		_, err := h.reg.RequestRegistration(context.Background(), in[0], in[1], in[2])
		assert.ErrorIs(t, err, common.ErrorInvalidArgument)
	}
	assert.Equal(t, 0, h.persister.Saves())
}

func TestRegistration_ConflictOnlyWithActiveClient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.reg.RequestRegistration(ctx, "bob", "b@x.com", "pw")
	require.NoError(t, err)
	_, err = h.reg.RequestRegistration(ctx, "bob", "b@x.com", "pw")
	require.NoError(t, err, "a pending registration does not reserve the name")

	_, err = h.reg.ConfirmRegistration(ctx, first.Code)
	require.NoError(t, err)

	_, err = h.reg.RequestRegistration(ctx, "bob", "b@x.com", "pw")
	assert.ErrorIs(t, err, common.ErrorConflict)

	_, err = h.reg.RequestRegistration(ctx, "BOB", "b@x.com", "pw")
	assert.NoError(t, err, "the uniqueness check is case-sensitive")
}

func TestRegistration_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		after   time.Duration
		wantErr error
	}{
		{"just before expiry", 14*time.Minute + 59*time.Second, nil},
		{"exactly at expiry", 15 * time.Minute, nil},
		{"just after expiry", 15*time.Minute + time.Second, common.ErrorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			ticket, err := h.reg.RequestRegistration(ctx, "carol", "c@x.com", "pw")
			require.NoError(t, err)

			h.clock.Advance(tt.after)
			_, err = h.reg.ConfirmRegistration(ctx, ticket.Code)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRegistration_ExpiredPendingsAreSwept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	old, err := h.reg.RequestRegistration(ctx, "dave", "d@x.com", "pw")
	require.NoError(t, err)

	h.clock.Advance(16 * time.Minute)
	_, err = h.reg.RequestRegistration(ctx, "erin", "e@x.com", "pw")
	require.NoError(t, err)

	_ = h.store.View(func(st *store.State) error {
		assert.Nil(t, st.PendingByCode(old.Code))
		assert.Len(t, st.Pending, 1)
		return nil
	})
}

func TestRegistration_ConfirmUnknownCode(t *testing.T) {
	h := newHarness(t)
	_, err := h.reg.ConfirmRegistration(context.Background(), 123456)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, 0, h.persister.Saves(), "a failed confirmation persists nothing")
}

func TestRefreshRegistrationCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	withCodes(t, 111111, 222222, 333333)

	ticket, err := h.reg.RequestRegistration(ctx, "frank", "f@x.com", "pw")
	require.NoError(t, err)
	require.Equal(t, 111111, ticket.Code)

	h.clock.Advance(10 * time.Minute)
	refreshed, err := h.reg.RefreshRegistrationCode(ctx, ticket.Code)
	require.NoError(t, err)
	assert.Equal(t, 222222, refreshed.Code)
	assert.Equal(t, h.clock.Now().Add(15*time.Minute), refreshed.ExpiresAt)

	_, err = h.reg.ConfirmRegistration(ctx, ticket.Code)
	assert.ErrorIs(t, err, common.ErrorNotFound, "the old code is gone")

	h.clock.Advance(14 * time.Minute)
	appCode, err := h.reg.ConfirmRegistration(ctx, refreshed.Code)
	require.NoError(t, err)
	assert.Equal(t, 333333, appCode)
}

func TestRefreshRegistrationCode_IgnoresExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ticket, err := h.reg.RequestRegistration(ctx, "gina", "g@x.com", "pw")
	require.NoError(t, err)

	// nothing has swept the expired registration yet
	h.clock.Advance(time.Hour)
	refreshed, err := h.reg.RefreshRegistrationCode(ctx, ticket.Code)
	require.NoError(t, err)

	_, err = h.reg.ConfirmRegistration(ctx, refreshed.Code)
	assert.NoError(t, err)
}

func TestRefreshRegistrationCode_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.reg.RefreshRegistrationCode(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRegistration_CodeGenerationFailure(t *testing.T) {
	h := newHarness(t)
	withCodes(t)

	_, err := h.reg.RequestRegistration(context.Background(), "hank", "h@x.com", "pw")
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Equal(t, 0, h.persister.Saves())
}

func TestRegistration_PersistFailureLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	h.persister.FailWith(errors.New("disk full"))

	_, err := h.reg.RequestRegistration(context.Background(), "ivan", "i@x.com", "pw")
	assert.ErrorIs(t, err, common.ErrorInternal)

	_ = h.store.View(func(st *store.State) error {
		assert.Empty(t, st.Pending)
		return nil
	})
}
