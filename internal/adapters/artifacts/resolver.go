package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/cairo"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
)

// scarbIndex is <package>.starknet_artifacts.json written by `scarb build`
type scarbIndex struct {
	Version   int `json:"version"`
	Contracts []struct {
		ID           string `json:"id"`
		PackageName  string `json:"package_name"`
		ContractName string `json:"contract_name"`
		ModulePath   string `json:"module_path"`
		Artifacts    struct {
			Sierra string `json:"sierra"`
			Casm   string `json:"casm"`
		} `json:"artifacts"`
	} `json:"contracts"`
}

// sierraClass is the contract_class.json file
type sierraClass struct {
	SierraProgram        json.RawMessage `json:"sierra_program"`
	ContractClassVersion string          `json:"contract_class_version"`
	EntryPointsByType    json.RawMessage `json:"entry_points_by_type"`
	ABI                  json.RawMessage `json:"abi"`
}

// Resolver reads compiled classes from the Scarb target directory
type Resolver struct {
	targetDir      string
	defaultPackage string
	log            *slog.Logger

	mu      sync.Mutex
	indexes map[string]*scarbIndex
}

// NewResolver creates a resolver for target/<profile>
func NewResolver(targetDir, defaultPackage string, log *slog.Logger) *Resolver {
	return &Resolver{
		targetDir:      targetDir,
		defaultPackage: defaultPackage,
		log:            log.With("component", "artifacts"),
		indexes:        make(map[string]*scarbIndex),
	}
}

// NewResolverFromConfig creates a Resolver from RuntimeConfig
func NewResolverFromConfig(cfg *config.RuntimeConfig, log *slog.Logger) *Resolver {
	targetDir := cfg.Project.TargetDir
	if !filepath.IsAbs(targetDir) {
		targetDir = filepath.Join(cfg.ProjectRoot, targetDir)
	}
	return NewResolver(filepath.Join(targetDir, cfg.Project.Profile), cfg.Project.Package, log)
}

// Resolve finds the compiled class for contract. No network I/O.
func (r *Resolver) Resolve(ctx context.Context, contract models.ContractSpec) (*models.Artifact, error) {
	pkg := contract.Package
	if pkg == "" {
		pkg = r.defaultPackage
	}

	index, err := r.index(pkg)
	if err != nil {
		return nil, err
	}

	for _, c := range index.Contracts {
		if c.ContractName != contract.Name {
			continue
		}
		if c.PackageName != "" && c.PackageName != pkg {
			continue
		}
		return r.load(contract.Name, pkg, c.Artifacts.Sierra, c.Artifacts.Casm)
	}
	return nil, fmt.Errorf("%w: %s not in %s build output", domain.ErrArtifactNotFound, contract.Name, pkg)
}

// ClassHashOf fingerprints the compiled class
func (r *Resolver) ClassHashOf(artifact *models.Artifact) (models.Felt, error) {
	return cairo.Fingerprint(artifact)
}

func (r *Resolver) index(pkg string) (*scarbIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.indexes[pkg]; ok {
		return idx, nil
	}

	path := filepath.Join(r.targetDir, pkg+".starknet_artifacts.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s missing (has the project been built?)", domain.ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("failed to read artifacts index: %w", err)
	}

	var idx scarbIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	r.log.Debug("loaded artifacts index", "path", path, "contracts", len(idx.Contracts))
	r.indexes[pkg] = &idx
	return &idx, nil
}

func (r *Resolver) load(name, pkg, sierraFile, casmFile string) (*models.Artifact, error) {
	if sierraFile == "" {
		return nil, fmt.Errorf("%w: %s has no sierra output", domain.ErrArtifactNotFound, name)
	}
	sierraPath := filepath.Join(r.targetDir, sierraFile)
	data, err := os.ReadFile(sierraPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, sierraPath)
		}
		return nil, fmt.Errorf("failed to read %s: %w", sierraPath, err)
	}

	var class sierraClass
	if err := json.Unmarshal(data, &class); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", sierraPath, err)
	}
	if len(class.SierraProgram) == 0 {
		return nil, fmt.Errorf("%s has no sierra_program", sierraPath)
	}
	if _, err := cairo.ParseABI(class.ABI); err != nil {
		return nil, fmt.Errorf("%s: %w", sierraPath, err)
	}

	artifact := &models.Artifact{
		Name:          name,
		Package:       pkg,
		SierraPath:    sierraPath,
		ABI:           class.ABI,
		SierraProgram: class.SierraProgram,
		EntryPoints:   class.EntryPointsByType,
	}
	if casmFile != "" {
		artifact.CasmPath = filepath.Join(r.targetDir, casmFile)
		if _, err := os.Stat(artifact.CasmPath); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, artifact.CasmPath)
		}
	}
	return artifact, nil
}

var _ usecase.ArtifactResolver = (*Resolver)(nil)
