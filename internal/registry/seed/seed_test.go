package seed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namereg/internal/registry/events"
	eventstore "namereg/internal/registry/events/store/memory"
	"namereg/internal/registry/models"
	"namereg/internal/registry/service"
	domainstore "namereg/internal/registry/store/domain"
	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
	"namereg/pkg/requestcontext"
)

const seedYAML = `
deployer: "0x00000000000000000000000000000000000000d0"
public:
  - org
  - uk
private:
  - name: google.com
    owner: "0x00000000000000000000000000000000000000a1"
  - name: maps.google.com
    owner: "0x00000000000000000000000000000000000000a1"
  - name: bbc.co.uk
    owner: "0x00000000000000000000000000000000000000b2"
`

func newRegistry() *service.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.New(domainstore.NewInMemory(), events.NewPublisher(eventstore.NewInMemoryStore()), 0, service.WithLogger(logger))
}

func TestParse(t *testing.T) {
	file, err := Parse(strings.NewReader(seedYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"org", "uk"}, file.Public)
	assert.Len(t, file.Private, 3)

	_, err = Parse(strings.NewReader("public: [org]\nextra: true\n"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	empty, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Public)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	file, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000d0", file.Deployer)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry()
	seeder := New(registry, slog.New(slog.NewTextHandler(io.Discard, nil)))
	file, err := Parse(strings.NewReader(seedYAML))
	require.NoError(t, err)

	result, err := seeder.Apply(ctx, file)
	require.NoError(t, err)
	// org, uk, com, google.com, maps.google.com, co.uk, bbc.co.uk
	assert.Equal(t, Result{Created: 7, Skipped: 3}, result)

	alice := id.MustParseAddress("0x00000000000000000000000000000000000000a1")
	mapsID, err := registry.IdOf(ctx, "maps.google.com")
	require.NoError(t, err)
	owner, err := registry.OwnerOf(ctx, mapsID)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	comID, _ := registry.IdOf(ctx, "com")
	owner, _ = registry.OwnerOf(ctx, comID)
	assert.True(t, owner.IsZero(), "top-level ancestors are public")

	t.Run("second run is a no-op", func(t *testing.T) {
		again, err := seeder.Apply(ctx, file)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Created)
	})
}

func TestApplyStopsOnForeignAncestor(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry()
	mallory := id.MustParseAddress("0x00000000000000000000000000000000000000ee")

	comID, err := registry.Create(requestcontext.WithCaller(ctx, mallory), id.RootDomainID, "com")
	require.NoError(t, err)
	_, err = registry.Create(requestcontext.WithCaller(ctx, mallory), comID, "google")
	require.NoError(t, err)

	file := &models.SeedFile{Private: []models.SeedEntry{{
		Name:  "maps.google.com",
		Owner: "0x00000000000000000000000000000000000000a1",
	}}}
	_, err = New(registry, slog.New(slog.NewTextHandler(io.Discard, nil))).Apply(ctx, file)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, models.CodeDomainIsNotOwnedByCaller))
	assert.Contains(t, err.Error(), "maps.google.com")
}
