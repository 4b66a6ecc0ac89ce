package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liqwatch/internal/config"
	"liqwatch/internal/model"
)

func baseInput(venue model.Venue) Input {
	return Input{
		Snapshot: &model.MarketSnapshot{
			Venue:         venue,
			Symbol:        "BTC/USDT",
			BestBid:       99.9,
			BestAsk:       100.1,
			LastPrice:     100,
			SpreadPercent: 0.2,
		},
		Depths: map[float64]model.DepthMeasurement{
			2:  {Venue: venue, BandPercent: 2, BidValue: 6000, AskValue: 6000},
			5:  {Venue: venue, BandPercent: 5, BidValue: 12000, AskValue: 12000},
			10: {Venue: venue, BandPercent: 10, BidValue: 20000, AskValue: 20000},
		},
	}
}

func typesOf(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Alert.Type)
	}
	return out
}

func TestEvaluate_QuietMarketProducesNothing(t *testing.T) {
	findings := Evaluate(config.DefaultSettings(), baseInput(model.VenueMEXC))
	assert.Empty(t, findings)
}

func TestEvaluate_SpreadCriticalWinsOverWarning(t *testing.T) {
	in := baseInput(model.VenueMEXC)
	// 4% crosses both the 1.5% warning and 3% critical thresholds; only the
	// critical tier may fire.
	in.Snapshot.SpreadPercent = 4

	findings := Evaluate(config.DefaultSettings(), in)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, model.AlertSpreadCritical, f.Alert.Type)
	assert.Equal(t, model.SeverityCritical, f.Alert.Severity)
	require.NotNil(t, f.Alert.Venue)
	assert.Equal(t, model.VenueMEXC, *f.Alert.Venue)
	require.NotNil(t, f.Rec)
	assert.Equal(t, model.CategorySpread, f.Rec.Category)
	assert.Equal(t, model.ActionTightenSpread, f.Rec.Action)
}

func TestEvaluate_SpreadWarningHasNoRecommendation(t *testing.T) {
	in := baseInput(model.VenueKuCoin)
	in.Snapshot.SpreadPercent = 2

	findings := Evaluate(config.DefaultSettings(), in)

	require.Len(t, findings, 1)
	assert.Equal(t, model.AlertSpreadWarning, findings[0].Alert.Type)
	assert.Equal(t, model.SeverityWarning, findings[0].Alert.Severity)
	assert.Nil(t, findings[0].Rec)
}

func TestEvaluate_DepthWarningOnly(t *testing.T) {
	// A book worth $4500 in the 2% band with warn=$5000 and crit=$2000
	// yields exactly one DEPTH_WARNING with no recommendation.
	in := baseInput(model.VenueMEXC)
	in.Depths[2] = model.DepthMeasurement{
		Venue: model.VenueMEXC, BandPercent: 2, BidValue: 2250, AskValue: 2250,
	}

	findings := Evaluate(config.DefaultSettings(), in)

	require.Len(t, findings, 1)
	assert.Equal(t, model.AlertDepthWarning, findings[0].Alert.Type)
	assert.Nil(t, findings[0].Rec)
	assert.Equal(t, 4500.0, findings[0].Alert.Details["total_value_usd"])
}

func TestEvaluate_DepthCriticalRecommendsAddLiquidity(t *testing.T) {
	in := baseInput(model.VenueMEXC)
	in.Depths[2] = model.DepthMeasurement{
		Venue: model.VenueMEXC, BandPercent: 2, BidValue: 800, AskValue: 900,
	}

	findings := Evaluate(config.DefaultSettings(), in)

	require.Len(t, findings, 1)
	assert.Equal(t, model.AlertDepthCritical, findings[0].Alert.Type)
	require.NotNil(t, findings[0].Rec)
	assert.Equal(t, model.ActionAddLiquidity, findings[0].Rec.Action)
	assert.Equal(t, model.CategoryDepth, findings[0].Rec.Category)
}

func TestEvaluate_PriceChangeTiers(t *testing.T) {
	tests := []struct {
		name       string
		changePct  float64
		wantType   string
		wantSev    model.Severity
		wantAction model.Action // empty means no recommendation
	}{
		{"below warning", 3, "", "", ""},
		{"notice tier", 6, model.AlertPriceChangeNotice, model.SeverityInfo, ""},
		{"volatility tier", 12, model.AlertPriceChangeWarning, model.SeverityWarning, model.ActionReduceExposure},
		{"pull tier", 25, model.AlertPriceChangeCritical, model.SeverityCritical, model.ActionPullLiquidity},
		{"negative move pulls too", -25, model.AlertPriceChangeCritical, model.SeverityCritical, model.ActionPullLiquidity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput(model.VenueMEXC)
			in.Snapshot.PriceChangePct = tt.changePct

			findings := Evaluate(config.DefaultSettings(), in)

			if tt.wantType == "" {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Equal(t, tt.wantType, findings[0].Alert.Type)
			assert.Equal(t, tt.wantSev, findings[0].Alert.Severity)
			if tt.wantAction == "" {
				assert.Nil(t, findings[0].Rec)
			} else {
				require.NotNil(t, findings[0].Rec)
				assert.Equal(t, tt.wantAction, findings[0].Rec.Action)
				assert.Equal(t, model.CategoryVolatility, findings[0].Rec.Category)
			}
		})
	}
}

func TestEvaluate_IndependentMetricsFireTogether(t *testing.T) {
	in := baseInput(model.VenueMEXC)
	in.Snapshot.SpreadPercent = 4
	in.Snapshot.PriceChangePct = 25
	in.Depths[2] = model.DepthMeasurement{Venue: model.VenueMEXC, BandPercent: 2, BidValue: 500, AskValue: 500}

	findings := Evaluate(config.DefaultSettings(), in)

	assert.ElementsMatch(t, []string{
		model.AlertSpreadCritical,
		model.AlertDepthCritical,
		model.AlertPriceChangeCritical,
	}, typesOf(findings))
}

func TestEvaluate_InventorySkew(t *testing.T) {
	in := baseInput(model.VenueKuCoin)
	in.HasOrders = true
	in.UserDepth = map[float64]model.UserDepth{
		5: {BandPercent: 5, BidValue: 8000, AskValue: 1000},
	}

	findings := Evaluate(config.DefaultSettings(), in)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, model.AlertInventorySkew, f.Alert.Type)
	assert.Equal(t, model.SeverityCritical, f.Alert.Severity)
	require.NotNil(t, f.Rec)
	// Bid-heavy inventory asks for more ask-side quotes.
	assert.Equal(t, model.ActionRebalanceAsk, f.Rec.Action)
	assert.Equal(t, model.CategoryInventory, f.Rec.Category)
}

func TestEvaluate_LowLiquidityShare(t *testing.T) {
	in := baseInput(model.VenueMEXC)
	in.HasOrders = true
	// Own depth $600 against $24000 market depth at the 5% band: 2.5% share.
	in.UserDepth = map[float64]model.UserDepth{
		5: {BandPercent: 5, BidValue: 300, AskValue: 300},
	}

	findings := Evaluate(config.DefaultSettings(), in)

	require.Len(t, findings, 1)
	assert.Equal(t, model.AlertLowLiquidityShare, findings[0].Alert.Type)
	assert.Equal(t, model.SeverityInfo, findings[0].Alert.Severity)
	assert.InDelta(t, 2.5, findings[0].Alert.Details["share_percent"], 1e-9)
	assert.Nil(t, findings[0].Rec)
}

func TestEvaluate_NoOrdersSkipsInventoryRules(t *testing.T) {
	in := baseInput(model.VenueMEXC)
	in.HasOrders = false
	in.UserDepth = nil

	assert.Empty(t, Evaluate(config.DefaultSettings(), in))
}

func TestEvaluate_VolumeSpike(t *testing.T) {
	in := baseInput(model.VenueMEXC)
	in.Metrics = &model.MetricsSnapshot{
		Venue:         model.VenueMEXC,
		Volume1h:      400,  // 4x the 100/h trailing average
		Volume24h:     2400,
		TradeCount1h:  50,
		TradeCount24h: 900,
	}

	findings := Evaluate(config.DefaultSettings(), in)

	require.Len(t, findings, 1)
	assert.Equal(t, model.AlertVolumeSpike, findings[0].Alert.Type)
	assert.Equal(t, model.SeverityWarning, findings[0].Alert.Severity)
	assert.InDelta(t, 4.0, findings[0].Alert.Details["spike_multiple"], 1e-9)
}

func TestEvaluate_VolumeSpikeNeedsHistory(t *testing.T) {
	in := baseInput(model.VenueMEXC)
	// All recorded trades fall inside the last hour: the 1h window and the
	// 24h hourly average are the same sample, so no spike can be claimed.
	in.Metrics = &model.MetricsSnapshot{
		Venue:         model.VenueMEXC,
		Volume1h:      400,
		Volume24h:     400,
		TradeCount1h:  50,
		TradeCount24h: 50,
	}

	assert.Empty(t, Evaluate(config.DefaultSettings(), in))
}
