package parts_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GRM188R71H104KA93D", "grm188r71h104ka93d"},
		{" grm188-r71h104 ka93d ", "grm188r71h104ka93d"},
		{"LM358\tDR", "lm358dr"},
		{"RC0603FR-0710KL", "rc0603fr0710kl"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parts.Normalize(tt.in))
		})
	}
}

func TestEqualIsSymmetric(t *testing.T) {
	assert.True(t, parts.Equal("rc0603-fr 0710kl", "RC0603FR-0710KL"))
	assert.True(t, parts.Equal("RC0603FR-0710KL", "rc0603-fr 0710kl"))
	assert.False(t, parts.Equal("RC0603FR-0710KL", "RC0603FR-0710K"))
}

func TestNewValidates(t *testing.T) {
	line, err := parts.New("LM358DR", 4)
	require.NoError(t, err)
	assert.NotEmpty(t, line.ID)
	assert.Equal(t, "lm358dr", line.PartNumber())
	assert.True(t, line.Unsourced())

	_, err = parts.New("LM358DR", 0)
	assert.True(t, errors.IsInvalidQuantity(err))

	_, err = parts.New(" - ", 1)
	assert.True(t, errors.IsValidationError(err))
}

func TestCloneIsDeep(t *testing.T) {
	line := &parts.PartLine{
		ID:                "line-1",
		OrderingCode:      "LM358DR",
		RequestedQuantity: 3,
		Override:          &parts.Override{Supplier: "local", UnitPrice: decimal.NewFromInt(1)},
		Properties:        map[string]string{"footprint": "SOIC-8"},
	}
	line.SetQuote(parts.SupplierQuote{
		Supplier:    "mouser",
		IsAvailable: true,
		PriceBreaks: []parts.PriceBreak{{MinimumQuantity: 1, UnitPrice: decimal.NewFromInt(2)}},
	})

	c := line.Clone()
	c.RequestedQuantity = 1
	c.Properties["footprint"] = "DIP-8"
	c.Override.Supplier = "other"
	q := c.Quotes["mouser"]
	q.PriceBreaks[0].MinimumQuantity = 99

	assert.Equal(t, 3, line.RequestedQuantity)
	assert.Equal(t, "SOIC-8", line.Properties["footprint"])
	assert.Equal(t, "local", line.Override.Supplier)
	assert.Equal(t, 1, line.Quotes["mouser"].PriceBreaks[0].MinimumQuantity)
}

func TestSortedBreaksDoesNotMutate(t *testing.T) {
	q := parts.SupplierQuote{PriceBreaks: []parts.PriceBreak{
		{MinimumQuantity: 100}, {MinimumQuantity: 1}, {MinimumQuantity: 10},
	}}

	sorted := q.SortedBreaks()
	assert.Equal(t, []int{1, 10, 100}, []int{sorted[0].MinimumQuantity, sorted[1].MinimumQuantity, sorted[2].MinimumQuantity})
	assert.Equal(t, 100, q.PriceBreaks[0].MinimumQuantity)
}
