package ledger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
	"github.com/louisbranch/objectledger/internal/services/ledger/storage/memory"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("LEDGER_GRPC_ADDR", "env:1")
	t.Setenv("LEDGER_HTTP_ADDR", "env:2")
	t.Setenv("LEDGER_STORAGE", "memory")
	t.Setenv("LEDGER_EVENT_HMAC_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: file:2\nlog_level: debug\nintegrity:\n  key_id: k9\n"), 0o600))

	cmd := &cobra.Command{Use: "test"}
	flags := &flagValues{}
	flags.register(cmd)
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--config", path, "--grpc-addr", "flag:1"}))

	cfg, err := LoadConfig(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, "flag:1", cfg.GRPCAddr)
	assert.Equal(t, "file:2", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, "from-env", cfg.Integrity.Key)
	assert.Equal(t, "k9", cfg.Integrity.KeyID)
}

func TestLoadConfigRejectsUnknownStorage(t *testing.T) {
	_, err := execute(t, "--storage", "postgres", "keygen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestKeygenDeterministic(t *testing.T) {
	var out bytes.Buffer
	reader := bytes.NewReader(bytes.Repeat([]byte{0xab}, 8))
	require.NoError(t, Keygen(KeygenOptions{Bytes: 4, KeyID: "v2"}, &out, reader))
	assert.Equal(t, "LEDGER_EVENT_HMAC_KEYS=v2=abababab\nLEDGER_EVENT_HMAC_KEY_ID=v2\nLEDGER_AUTH_JWT_SECRET=abababab\n", out.String())

	require.Error(t, Keygen(KeygenOptions{Bytes: 0}, &out, nil))
	require.Error(t, Keygen(KeygenOptions{Bytes: 4}, &out, bytes.NewReader(nil)))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("LEDGER_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("LEDGER_STORAGE", "memory")
	out, err := execute(t, "token", "0xadmin")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."))

	t.Setenv("LEDGER_AUTH_JWT_SECRET", "")
	_, err = execute(t, "token", "0xadmin")
	require.Error(t, err)
}

func TestSimulateCommitsEveryVote(t *testing.T) {
	svc, err := service.New(memory.New())
	require.NoError(t, err)

	report, err := Simulate(context.Background(), svc, SimulateOptions{
		Admin:       "0xadmin",
		Proposals:   2,
		Voters:      12,
		Concurrency: 6,
		Retry:       ledgergrpc.RetryPolicy{MaxAttempts: 200},
	})
	require.NoError(t, err)
	assert.Len(t, report.Proposals, 2)
	assert.Equal(t, int64(24), report.Votes)

	for _, id := range report.Proposals {
		info, err := svc.ProposalInfo(context.Background(), id.String())
		require.NoError(t, err)
		assert.Equal(t, uint64(6), info.YesVotes)
		assert.Equal(t, uint64(6), info.NoVotes)
	}

	// A second run reuses the registry.
	_, err = Simulate(context.Background(), svc, SimulateOptions{Admin: "0xadmin", Proposals: 1, Voters: 1})
	require.NoError(t, err)
	registry, err := svc.RegistryInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), registry.ProposalCount)
}

func TestSimulateReplayVerifyOnSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("LEDGER_EVENT_HMAC_KEYS", "v1=alpha")
	common := []string{"--storage", "sqlite", "--db-path", dbPath, "--log-level", "warn"}

	out, err := execute(t, append(common, "simulate", "--proposals", "2", "--voters", "5", "--concurrency", "3")...)
	require.NoError(t, err)
	assert.Contains(t, out, "votes: 10")

	out, err = execute(t, append(common, "replay")...)
	require.NoError(t, err)
	assert.Contains(t, out, "replayed 13 transactions")

	out, err = execute(t, append(common, "verify")...)
	require.NoError(t, err)
	assert.Contains(t, out, "event chain: ok")
	assert.Contains(t, out, "voting invariants: ok")

	t.Setenv("LEDGER_EVENT_HMAC_KEYS", "v1=beta")
	out, err = execute(t, append(common, "verify")...)
	require.Error(t, err)
	assert.Contains(t, out, "event chain: FAIL")
}

func TestSimulateRejectsBadOptions(t *testing.T) {
	svc, err := service.New(memory.New())
	require.NoError(t, err)
	_, err = Simulate(context.Background(), svc, SimulateOptions{Proposals: 0, Voters: 1})
	require.Error(t, err)
}

func TestEncodeArgs(t *testing.T) {
	raw, err := encodeArgs(voting.VoteArgs{ProposalID: "0xabc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"proposal_id":"0xabc","choice":null}`, string(raw))

	_, err = encodeArgs(map[string]any{"bad": make(chan int)})
	require.ErrorContains(t, err, "encode args")
}
