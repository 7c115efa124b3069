package assign_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/pkg/assign"
	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
)

var testCatalogs = []catalogs.Catalog{
	{ID: "c-misc", Name: "Miscellaneous"},
	{ID: "c-cap", Name: "Capacitors"},
	{ID: "c-res", Name: "Chip Resistors"},
	{ID: "c-ind", Name: "Inductors & Ferrites"},
	{ID: "c-ic", Name: "ICs"},
	{ID: "c-conn", Name: "Connectors"},
}

func TestClassify(t *testing.T) {
	h := assign.New()
	tests := []struct {
		partNumber string
		want       assign.Family
	}{
		{"GRM188R71H104KA93D", assign.Capacitor},
		{"CL10A106MQ8NNNC", assign.Capacitor},
		{"RC0603FR-0710KL", assign.Resistor},
		{"ERJ-3EKF1002V", assign.Resistor},
		{"BLM18PG221SN1D", assign.Inductor},
		{"LQM2HPN2R2MG0L", assign.Inductor},
		{"LM358DR", assign.IntegratedCircuit},
		{"STM32F103C8T6", assign.IntegratedCircuit},
		{"JST-B2B-XH-A", assign.Connector},
		{"HDR-1x04", assign.Connector},
		{"XYZ-123", assign.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.partNumber, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Classify(tt.partNumber))
		})
	}
}

func TestGuess(t *testing.T) {
	h := assign.New()

	c, ok := h.Guess("GRM188R71H104KA93D", testCatalogs)
	require.True(t, ok)
	assert.Equal(t, "c-cap", c.ID)

	c, ok = h.Guess("LM358DR", testCatalogs)
	require.True(t, ok)
	assert.Equal(t, "c-ic", c.ID)

	_, ok = h.Guess("XYZ-123", testCatalogs)
	assert.False(t, ok, "unknown family")

	ambiguous := append([]catalogs.Catalog{{ID: "c-cap2", Name: "Ceramic caps"}}, testCatalogs...)
	_, ok = h.Guess("GRM188R71H104KA93D", ambiguous)
	assert.False(t, ok, "two capacitor catalogs")
}

func TestOrderCatalogs(t *testing.T) {
	h := assign.New()

	ordered := h.OrderCatalogs("RC0603FR-0710KL", testCatalogs)
	require.Len(t, ordered, len(testCatalogs))
	assert.Equal(t, "c-res", ordered[0].ID)
	assert.Equal(t, "c-misc", ordered[1].ID)
	assert.Equal(t, "c-cap", ordered[2].ID)
	assert.Equal(t, "c-misc", testCatalogs[0].ID, "input is not reordered")

	unknown := h.OrderCatalogs("XYZ-123", testCatalogs)
	assert.Equal(t, testCatalogs, unknown)
}

func lines() []*parts.PartLine {
	return []*parts.PartLine{
		{ID: "1", OrderingCode: "GRM188R71H104KA93D", RequestedQuantity: 1},
		{ID: "2", OrderingCode: "LM358DR", RequestedQuantity: 1},
		{ID: "3", OrderingCode: "XYZ-123", RequestedQuantity: 1},
	}
}

func TestAssignPreselectedBypassesHeuristic(t *testing.T) {
	called := false
	assigner := policy.CatalogAssignerFunc(func(context.Context, []*parts.PartLine, []catalogs.Catalog) (map[string]string, error) {
		called = true
		return nil, nil
	})

	a, err := assign.New().Assign(context.Background(), lines(), testCatalogs, "c-misc", assigner)
	require.NoError(t, err)

	assert.False(t, called)
	assert.Empty(t, a.Unassigned)
	for _, l := range lines() {
		id, ok := a.CatalogFor(l.ID)
		assert.True(t, ok)
		assert.Equal(t, "c-misc", id)
		assert.Equal(t, assign.SourcePreselected, a.Sources[l.ID])
	}
}

func TestAssignDefaultPolicyLeavesAmbiguousUnassigned(t *testing.T) {
	a, err := assign.New().Assign(context.Background(), lines(), testCatalogs, "", policy.NoAssignment())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"1": "c-cap", "2": "c-ic"}, a.Catalogs)
	require.Len(t, a.Unassigned, 1)
	assert.Equal(t, "3", a.Unassigned[0].ID)
}

func TestAssignPolicyOverridesHeuristic(t *testing.T) {
	log := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), log.Logger)

	var received []string
	assigner := policy.CatalogAssignerFunc(func(_ context.Context, ls []*parts.PartLine, cats []catalogs.Catalog) (map[string]string, error) {
		received = parts.IDs(ls)
		assert.Len(t, cats, len(testCatalogs))
		return map[string]string{"2": "c-misc", "3": "c-gone"}, nil
	})

	a, err := assign.New().Assign(ctx, lines(), testCatalogs, "", assigner)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, received)
	assert.Equal(t, "c-cap", a.Catalogs["1"])
	assert.Equal(t, assign.SourceHeuristic, a.Sources["1"])
	assert.Equal(t, "c-misc", a.Catalogs["2"])
	assert.Equal(t, assign.SourcePolicy, a.Sources["2"])
	require.Len(t, a.Unassigned, 1)
	assert.Equal(t, "3", a.Unassigned[0].ID)
	log.AssertContains(t, "Ignoring assignment to unknown catalog")
}

func TestAssignSkipsPolicyWhenUnambiguous(t *testing.T) {
	called := false
	assigner := policy.CatalogAssignerFunc(func(context.Context, []*parts.PartLine, []catalogs.Catalog) (map[string]string, error) {
		called = true
		return nil, nil
	})

	a, err := assign.New().Assign(context.Background(), lines()[:2], testCatalogs, "", assigner)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Len(t, a.Catalogs, 2)
}

func TestCustomRules(t *testing.T) {
	h := assign.New(assign.Rule{Family: "crystal", Prefixes: []string{"abm"}, Keywords: []string{"crystals"}})
	cats := []catalogs.Catalog{{ID: "x", Name: "Crystals"}}

	assert.Equal(t, assign.Family("crystal"), h.Classify("ABM8-16.000MHZ"))
	c, ok := h.Guess("ABM8-16.000MHZ", cats)
	require.True(t, ok)
	assert.Equal(t, "x", c.ID)
}
