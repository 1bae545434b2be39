package sncast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRun struct {
	args []string
}

func newTestExecutor(t *testing.T, stdout, stderr string, runErr error) (*Executor, *recordedRun) {
	t.Helper()
	cfg := &config.RuntimeConfig{
		ProjectRoot: t.TempDir(),
		Project:     config.ProjectConfig{SncastBinary: "sncast"},
		Network: &config.Network{
			Name:         models.Sepolia,
			RPCURL:       "https://rpc.example",
			Account:      "cofi",
			AccountsFile: "accounts.json",
		},
	}
	rec := &recordedRun{}
	e := NewExecutor(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithRunner(func(ctx context.Context, dir string, args []string) ([]byte, []byte, error) {
			rec.args = args
			return []byte(stdout), []byte(stderr), runErr
		})
	return e, rec
}

func TestDeclare(t *testing.T) {
	e, rec := newTestExecutor(t,
		"warning: something\n{\"command\":\"declare\",\"class_hash\":\"0x1234\",\"transaction_hash\":\"0xabcd\"}\n", "", nil)

	res, err := e.Declare(context.Background(), &models.Artifact{Name: "Distribution", Package: "contracts"})
	require.NoError(t, err)
	assert.Equal(t, "0x1234", res.ClassHash.Short())
	require.NotNil(t, res.TxHash)
	assert.Equal(t, "0xabcd", res.TxHash.Short())
	assert.False(t, res.AlreadyDeclared)

	assert.Equal(t, []string{
		"--json", "--account", "cofi", "--accounts-file", "accounts.json",
		"declare", "--url", "https://rpc.example", "--contract-name", "Distribution", "--package", "contracts",
	}, rec.args)
}

func TestDeclareAlreadyDeclared(t *testing.T) {
	e, _ := newTestExecutor(t, "",
		`{"command":"declare","error":"An error occurred in the called contract: Class with hash 0x0beef is already declared."}`,
		errors.New("exit status 1"))

	res, err := e.Declare(context.Background(), &models.Artifact{Name: "Swap"})
	require.NoError(t, err)
	assert.True(t, res.AlreadyDeclared)
	assert.Nil(t, res.TxHash)
	assert.Equal(t, "0xbeef", res.ClassHash.Short())
}

func TestDeclareFailure(t *testing.T) {
	e, _ := newTestExecutor(t, "", `{"command":"declare","error":"Insufficient fee"}`, errors.New("exit status 1"))
	_, err := e.Declare(context.Background(), &models.Artifact{Name: "Swap"})
	assert.ErrorContains(t, err, "Insufficient fee")
}

func TestDeploy(t *testing.T) {
	e, rec := newTestExecutor(t,
		`{"command":"deploy","contract_address":"0x777","transaction_hash":"0x888"}`, "", nil)

	res, err := e.Deploy(context.Background(), models.NewFelt(0x55), []models.Felt{models.NewFelt(1), models.NewFelt(0x1388)})
	require.NoError(t, err)
	assert.Equal(t, "0x777", res.Address.Short())
	assert.Equal(t, "0x888", res.TxHash.Short())
	assert.Equal(t, []string{"--constructor-calldata", "0x1", "0x1388"}, rec.args[len(rec.args)-3:])
	assert.Contains(t, rec.args, models.NewFelt(0x55).String())
}

func TestInvokeNoJSON(t *testing.T) {
	e, _ := newTestExecutor(t, "garbage", "", nil)
	_, err := e.Invoke(context.Background(), models.NewFelt(1), "set_minter", nil)
	assert.ErrorContains(t, err, "no JSON output")
}

func TestWriteMulticallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.toml")
	calls := []MulticallEntry{
		{CallType: "invoke", ContractAddress: "0x1", Function: "set_minter", Inputs: []string{"0x2"}},
		{CallType: "invoke", ContractAddress: "0x3", Function: "set_marketplace", Inputs: []string{"0x2"}},
	}
	require.NoError(t, WriteMulticallFile(path, calls))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[[call]]")

	var back multicallFile
	_, err = toml.Decode(string(data), &back)
	require.NoError(t, err)
	assert.Equal(t, calls, back.Call)
}
