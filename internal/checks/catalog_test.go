package checks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

func TestCatalogIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, check := range Catalog() {
		assert.False(t, seen[check.ID], "duplicate check id %s", check.ID)
		seen[check.ID] = true
	}
}

func TestCatalogIDsCarryTheirPillar(t *testing.T) {
	for _, check := range Catalog() {
		prefix, _, found := strings.Cut(check.ID, "#")
		require.True(t, found, "check id %s must be <Pillar>#<Name>", check.ID)
		assert.Equal(t, string(check.Pillar), prefix, "check %s is filed under the wrong pillar", check.ID)
	}
}

func TestCatalogEntriesAreRunnable(t *testing.T) {
	for _, check := range Catalog() {
		assert.NotNil(t, check.Run, "check %s has no run function", check.ID)
		assert.NotEmpty(t, check.Name)
		assert.Contains(t, []Scope{ScopeGlobal, ScopeRegional}, check.Scope, "check %s has an unknown scope", check.ID)
	}
}

func TestCatalogCoversEveryPillar(t *testing.T) {
	counts := make(map[entity.Pillar]int)
	for _, check := range Catalog() {
		counts[check.Pillar]++
	}

	for _, pillar := range []entity.Pillar{
		entity.PillarSecurity,
		entity.PillarReliability,
		entity.PillarPerformance,
		entity.PillarCost,
		entity.PillarSustainability,
	} {
		assert.Greater(t, counts[pillar], 0, "pillar %s has no checks", pillar)
	}
	assert.Zero(t, counts[entity.PillarSystem], "system findings are engine-made, never catalog checks")
}

func TestCatalogIsStableAcrossCalls(t *testing.T) {
	first := Catalog()
	second := Catalog()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}
