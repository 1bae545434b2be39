package sncast

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/samber/lo"
)

var alreadyDeclaredPattern = regexp.MustCompile(`(?i)class with hash (0x[0-9a-f]+) is already declared`)

// Runner executes the sncast binary and returns stdout and stderr
type Runner func(ctx context.Context, dir string, args []string) (stdout, stderr []byte, err error)

// Response is the --json output of sncast
type Response struct {
	Command         string `json:"command"`
	ClassHash       string `json:"class_hash,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	Error           string `json:"error,omitempty"`
}

// DeclareResult is the parsed outcome of a declare
type DeclareResult struct {
	ClassHash       models.Felt
	TxHash          *models.Felt
	AlreadyDeclared bool
}

// Executor builds sncast invocations for one account and network
type Executor struct {
	binary       string
	projectRoot  string
	rpcURL       string
	account      string
	accountsFile string
	run          Runner
	log          *slog.Logger
}

// NewExecutor creates an executor from RuntimeConfig
func NewExecutor(cfg *config.RuntimeConfig, log *slog.Logger) *Executor {
	e := &Executor{
		binary:      cfg.Project.SncastBinary,
		projectRoot: cfg.ProjectRoot,
		log:         log.With("component", "sncast"),
	}
	if cfg.Network != nil {
		e.rpcURL = cfg.Network.RPCURL
		e.account = cfg.Network.Account
		e.accountsFile = cfg.Network.AccountsFile
	}
	e.run = e.exec
	return e
}

// WithRunner replaces the process runner; used by tests
func (e *Executor) WithRunner(run Runner) *Executor {
	e.run = run
	return e
}

func (e *Executor) exec(ctx context.Context, dir string, args []string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (e *Executor) globalArgs() []string {
	args := []string{"--json"}
	if e.account != "" {
		args = append(args, "--account", e.account)
	}
	if e.accountsFile != "" {
		args = append(args, "--accounts-file", e.accountsFile)
	}
	return args
}

// Declare declares the contract class. An "already declared" answer is not an error.
func (e *Executor) Declare(ctx context.Context, artifact *models.Artifact) (*DeclareResult, error) {
	args := append(e.globalArgs(), "declare", "--url", e.rpcURL, "--contract-name", artifact.Name)
	if artifact.Package != "" {
		args = append(args, "--package", artifact.Package)
	}

	resp, raw, err := e.invoke(ctx, args)
	if err != nil {
		if m := alreadyDeclaredPattern.FindStringSubmatch(raw); m != nil {
			hash, perr := models.ParseFelt(m[1])
			if perr != nil {
				return nil, perr
			}
			e.log.Info("class already declared", "contract", artifact.Name, "class_hash", hash)
			return &DeclareResult{ClassHash: hash, AlreadyDeclared: true}, nil
		}
		return nil, err
	}

	hash, err := models.ParseFelt(resp.ClassHash)
	if err != nil {
		return nil, fmt.Errorf("declare returned invalid class hash: %w", err)
	}
	tx, err := models.ParseFelt(resp.TransactionHash)
	if err != nil {
		return nil, fmt.Errorf("declare returned invalid transaction hash: %w", err)
	}
	return &DeclareResult{ClassHash: hash, TxHash: &tx}, nil
}

// Deploy deploys an instance of classHash with the given constructor calldata
func (e *Executor) Deploy(ctx context.Context, classHash models.Felt, calldata []models.Felt) (*models.DeployResult, error) {
	args := append(e.globalArgs(), "deploy", "--url", e.rpcURL, "--class-hash", classHash.String())
	if len(calldata) > 0 {
		args = append(args, "--constructor-calldata")
		args = append(args, feltArgs(calldata)...)
	}

	resp, _, err := e.invoke(ctx, args)
	if err != nil {
		return nil, err
	}
	addr, err := models.ParseFelt(resp.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("deploy returned invalid address: %w", err)
	}
	tx, err := models.ParseFelt(resp.TransactionHash)
	if err != nil {
		return nil, fmt.Errorf("deploy returned invalid transaction hash: %w", err)
	}
	return &models.DeployResult{Address: addr, TxHash: tx}, nil
}

// Invoke sends a single call
func (e *Executor) Invoke(ctx context.Context, to models.Felt, function string, calldata []models.Felt) (models.Felt, error) {
	args := append(e.globalArgs(), "invoke", "--url", e.rpcURL,
		"--contract-address", to.String(), "--function", function)
	if len(calldata) > 0 {
		args = append(args, "--calldata")
		args = append(args, feltArgs(calldata)...)
	}

	resp, _, err := e.invoke(ctx, args)
	if err != nil {
		return models.Felt{}, err
	}
	return models.ParseFelt(resp.TransactionHash)
}

// MulticallEntry is one [[call]] of a multicall file
type MulticallEntry struct {
	CallType        string   `toml:"call_type"`
	ContractAddress string   `toml:"contract_address"`
	Function        string   `toml:"function"`
	Inputs          []string `toml:"inputs"`
}

type multicallFile struct {
	Call []MulticallEntry `toml:"call"`
}

// Multicall submits all calls as one transaction
func (e *Executor) Multicall(ctx context.Context, calls []MulticallEntry) (models.Felt, error) {
	dir, err := os.MkdirTemp("", "cofi-multicall-*")
	if err != nil {
		return models.Felt{}, fmt.Errorf("failed to create multicall dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "multicall.toml")
	if err := WriteMulticallFile(path, calls); err != nil {
		return models.Felt{}, err
	}

	args := append(e.globalArgs(), "multicall", "run", "--url", e.rpcURL, "--path", path)
	resp, _, err := e.invoke(ctx, args)
	if err != nil {
		return models.Felt{}, err
	}
	return models.ParseFelt(resp.TransactionHash)
}

// WriteMulticallFile encodes calls in the sncast multicall format
func WriteMulticallFile(path string, calls []MulticallEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create multicall file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(multicallFile{Call: calls}); err != nil {
		return fmt.Errorf("failed to encode multicall file: %w", err)
	}
	return nil
}

// invoke runs sncast and parses the last JSON object of its output.
// The raw combined output is returned for error matching.
func (e *Executor) invoke(ctx context.Context, args []string) (*Response, string, error) {
	e.log.Debug("running sncast", "args", args)

	stdout, stderr, runErr := e.run(ctx, e.projectRoot, args)
	raw := string(stdout) + "\n" + string(stderr)

	resp := lastResponse(stdout)
	if resp == nil {
		resp = lastResponse(stderr)
	}

	switch {
	case resp != nil && resp.Error != "":
		return nil, raw, fmt.Errorf("sncast %s: %s", resp.Command, resp.Error)
	case runErr != nil:
		return nil, raw, fmt.Errorf("sncast failed: %w: %s", runErr, strings.TrimSpace(string(stderr)))
	case resp == nil:
		return nil, raw, fmt.Errorf("sncast produced no JSON output: %s", strings.TrimSpace(raw))
	}
	return resp, raw, nil
}

func lastResponse(out []byte) *Response {
	var last *Response
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var r Response
		if err := json.Unmarshal([]byte(line), &r); err == nil {
			last = &r
		}
	}
	return last
}

func feltArgs(felts []models.Felt) []string {
	return lo.Map(felts, func(f models.Felt, _ int) string { return f.Short() })
}
