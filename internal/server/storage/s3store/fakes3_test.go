package s3store

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFakeS3(t *testing.T) Settings {
	t.Helper()
	backend := s3mem.New()
	server := httptest.NewServer(gofakes3.New(backend).Server())
	t.Cleanup(server.Close)

	bucket := "loremgate-test"
	require.NoError(t, backend.CreateBucket(bucket))

	return Settings{
		Region:       "us-east-1",
		AccessKey:    "test",
		SecretKey:    "test",
		Bucket:       bucket,
		BaseEndpoint: server.URL,
	}
}

func TestBackend_AgainstFakeS3(t *testing.T) {
	ctx := context.Background()
	b, err := New(ctx, setupFakeS3(t))
	require.NoError(t, err)

	_, err = b.Load(ctx)
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, b.Save(ctx, &models.Snapshot{
		Clients: []models.Client{{Account: models.Account{AccountName: "alice"}, AppCode: 123456}},
	}))
	require.NoError(t, b.Save(ctx, &models.Snapshot{
		Clients: []models.Client{
			{Account: models.Account{AccountName: "alice"}, AppCode: 123456},
			{Account: models.Account{AccountName: "bob"}, AppCode: 654321},
		},
	}))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Clients, 2)
	assert.Equal(t, "bob", got.Clients[1].AccountName)
}
