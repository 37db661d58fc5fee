package app

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	platformgrpc "github.com/louisbranch/objectledger/internal/platform/grpc"
	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
	"github.com/louisbranch/objectledger/internal/services/ledger/relay"
	"github.com/louisbranch/objectledger/internal/services/ledger/storage/integrity"
)

func testConfig(t *testing.T) Config {
	return Config{
		GRPCAddr:  "127.0.0.1:0",
		HTTPAddr:  "127.0.0.1:0",
		Storage:   StorageSQLite,
		DBPath:    filepath.Join(t.TempDir(), "nested", "ledger.db"),
		JWTSecret: "secret",
		JWTIssuer: "test",
		Integrity: integrity.Config{Key: "hmac-secret"},
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Validate())

	cfg.Storage = "postgres"
	require.Error(t, cfg.Validate())

	cfg.Storage = StorageSQLite
	cfg.DBPath = ""
	require.Error(t, cfg.Validate())

	cfg = Config{Storage: StorageMemory, EventCapacity: -1}
	require.Error(t, cfg.Validate())
}

func TestOpenBackendMemory(t *testing.T) {
	backend, err := OpenBackend(context.Background(), Config{Storage: StorageMemory, EventCapacity: 10})
	require.NoError(t, err)
	defer backend.Close()
	_, isCheckpoints := backend.(relay.Checkpoints)
	assert.False(t, isCheckpoints)
}

func TestOpenBackendSQLiteHasCheckpoints(t *testing.T) {
	backend, err := OpenBackend(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer backend.Close()
	_, isCheckpoints := backend.(relay.Checkpoints)
	assert.True(t, isCheckpoints)
}

func TestServeEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	server, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx) }()

	conn, err := platformgrpc.DialWithHealth(context.Background(), nil, server.GRPCAddr(), 2*time.Second,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	token, err := ledgergrpc.Authenticator{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer}.IssueToken("0xadmin")
	require.NoError(t, err)
	client := ledgergrpc.NewClient(conn, ledgergrpc.WithToken(token))
	receipt, err := client.Submit(context.Background(), voting.OpInit, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.TxSeq)

	resp, err := http.Get("http://" + server.HTTPAddr() + "/v1/registry")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var registry map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registry))
	assert.EqualValues(t, 0, registry["proposal_count"])

	require.NoError(t, server.Service().Backend().VerifyEventIntegrity(context.Background(), nil))

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
