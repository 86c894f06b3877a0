package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/workflow"
)

func TestGeneratePlans(t *testing.T) {
	debt := parse(t, shopDebt)
	features, err := ExtractFeatures(parse(t, shopDoc), debt, workflow.RouteAgnostic)
	require.NoError(t, err)

	plans, err := GeneratePlans(features, debt)
	require.NoError(t, err)

	// Complete features never receive a plan.
	assert.NotContains(t, plans, "001")
	assert.Len(t, plans, 4)

	t.Run("partial feature", func(t *testing.T) {
		cart := plans["002"]
		assert.Equal(t, "Shopping Cart", cart.FeatureName)
		assert.Equal(t, "Partially implemented: 1 of 3 acceptance criteria are satisfied.", cart.CurrentState)
		assert.Equal(t, "Shopping Cart is complete: all 3 acceptance criteria are satisfied.", cart.TargetState)

		require.Len(t, cart.Tasks, 3)
		assert.Equal(t, workflow.Task{ID: "T1", Description: "Remove item", Effort: workflow.EffortSmall}, cart.Tasks[0])
		assert.Equal(t, "T2", cart.Tasks[1].ID)
		assert.Equal(t, []string{"T1", "T2"}, cart.Tasks[2].Dependencies)

		// Its only dependency is complete.
		assert.Empty(t, cart.Risks)
	})

	t.Run("debt passage", func(t *testing.T) {
		checkout := plans["003"]
		assert.Contains(t, checkout.CurrentState, "Payment capture is not implemented.")
		assert.Contains(t, checkout.CurrentState, "none of the 2 acceptance criteria")

		require.Len(t, checkout.Risks, 2)
		debtRisk := checkout.Risks[0]
		assert.Equal(t, workflow.LevelHigh, debtRisk.Probability)
		assert.Equal(t, workflow.LevelMedium, debtRisk.Impact)
		assert.Equal(t, "integrate the payment gateway behind an interface.", debtRisk.Mitigation)

		depRisk := checkout.Risks[1]
		assert.Equal(t, "Depends on incomplete feature 002 (Shopping Cart)", depRisk.Description)
	})

	t.Run("no criteria", func(t *testing.T) {
		search := plans["004"]
		require.Len(t, search.Tasks, 2)
		assert.Equal(t, "Define acceptance criteria for Search", search.Tasks[0].Description)
		assert.Equal(t, []string{"T1"}, search.Tasks[1].Dependencies)
		require.Len(t, search.Risks, 1)
		assert.Contains(t, search.Risks[0].Description, "partially done")
	})

	t.Run("unresolved dependency", func(t *testing.T) {
		wishlist := plans["005"]
		require.Len(t, wishlist.Risks, 1)
		assert.Contains(t, wishlist.Risks[0].Description, `"Gift Cards"`)
	})
}

func TestGeneratePlans_NoDebt(t *testing.T) {
	features := []workflow.Feature{
		{ID: "001", Name: "Alpha", Status: workflow.StatusMissing},
		{ID: "002", Name: "Beta", Status: workflow.StatusComplete},
	}
	plans, err := GeneratePlans(features, nil)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Not implemented.", plans["001"].CurrentState)
	assert.Empty(t, plans["001"].Risks)
}

func TestGeneratePlans_DuplicateIDs(t *testing.T) {
	_, err := GeneratePlans([]workflow.Feature{{ID: "001"}, {ID: "001"}}, nil)
	require.Error(t, err)

	var xerr *ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, PhasePlans, xerr.Phase)
}

func TestEstimateEffort(t *testing.T) {
	tests := []struct {
		text string
		want workflow.Effort
	}{
		{"Remove item", workflow.EffortSmall},
		{"Lock the account after five failed login attempts in a row", workflow.EffortMedium},
		{"Support exporting every report as CSV, PDF and spreadsheet formats with per-column filters and saved presets today", workflow.EffortLarge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, estimateEffort(tt.text), tt.text)
	}
}

func TestRateRisk(t *testing.T) {
	assert.Equal(t, workflow.LevelHigh, rateImpact("Possible data loss on restart"))
	assert.Equal(t, workflow.LevelLow, rateImpact("Minor layout glitch"))
	assert.Equal(t, workflow.LevelMedium, rateImpact("Slow rebuilds"))

	assert.Equal(t, workflow.LevelHigh, rateProbability("This happens often"))
	assert.Equal(t, workflow.LevelLow, rateProbability("An unlikely race"))
	assert.Equal(t, workflow.LevelMedium, rateProbability("Slow rebuilds"))
}
