// Package seed pre-registers names at boot from a YAML file: public top-level
// suffixes and private names with their initial owners. Every name goes
// through the registry's normal Create path, so seeding emits the same events
// and obeys the same rules as API traffic.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"namereg/internal/registry/models"
	"namereg/internal/registry/naming"
	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
	"namereg/pkg/requestcontext"
)

// Registry is the subset of the registry service the seeder drives.
type Registry interface {
	Create(ctx context.Context, parentID id.DomainID, prefix string) (id.DomainID, error)
	IdOf(ctx context.Context, name string) (id.DomainID, error)
}

// Result counts what a seeding run did.
type Result struct {
	Created int
	Skipped int
}

// Load reads and validates a seed file.
func Load(path string) (*models.SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a seed file, rejecting unknown keys.
func Parse(r io.Reader) (*models.SeedFile, error) {
	var file models.SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid seed file")
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

type Seeder struct {
	registry Registry
	logger   *slog.Logger
}

func New(registry Registry, logger *slog.Logger) *Seeder {
	return &Seeder{registry: registry, logger: logger}
}

// Apply creates every missing name in file. Existing names are skipped, so
// running it twice is harmless. Missing ancestors of private entries are
// created on the owner's behalf.
func (s *Seeder) Apply(ctx context.Context, file *models.SeedFile) (Result, error) {
	var result Result
	if len(file.Public) > 0 {
		deployer, err := id.ParseAddress(file.Deployer)
		if err != nil {
			return result, err
		}
		deployerCtx := requestcontext.WithCaller(ctx, deployer)
		for _, label := range file.Public {
			if err := s.ensure(deployerCtx, []string{label}, &result); err != nil {
				return result, err
			}
		}
	}

	for _, entry := range file.Private {
		owner, err := id.ParseAddress(entry.Owner)
		if err != nil {
			return result, err
		}
		if err := s.ensure(requestcontext.WithCaller(ctx, owner), naming.Split(entry.Name), &result); err != nil {
			return result, err
		}
	}

	s.logger.InfoContext(ctx, "seeding complete",
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

// ensure walks labels from the top of the tree, creating whatever is missing.
func (s *Seeder) ensure(ctx context.Context, labels []string, result *Result) error {
	parentID := id.RootDomainID
	name := ""
	for _, label := range labels {
		name = naming.ComposeName(name, label)
		existing, err := s.registry.IdOf(ctx, name)
		switch {
		case err == nil:
			parentID = existing
			result.Skipped++
			continue
		case !dErrors.HasCode(err, models.CodeDomainDoesNotExist):
			return fmt.Errorf("seed %q: %w", name, err)
		}

		created, err := s.registry.Create(ctx, parentID, label)
		if err != nil {
			return fmt.Errorf("seed %q: %w", name, err)
		}
		s.logger.DebugContext(ctx, "seeded domain",
			"domain_id", created,
			"name", name,
			"caller", requestcontext.Caller(ctx).String(),
		)
		parentID = created
		result.Created++
	}
	return nil
}
