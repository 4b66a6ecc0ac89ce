package alert

import (
	"fmt"
	"math"
	"time"

	"liqwatch/internal/config"
	"liqwatch/internal/model"
)

// skewLimit is the fraction of the operator's own 5% band depth that one
// side may hold before an inventory rebalance fires.
const skewLimit = 0.70

// minLiquiditySharePct is the floor for the operator's share of market depth
// at the 5% band.
const minLiquiditySharePct = 5.0

// RecommendationRequest asks the lifecycle manager for an upsert.
type RecommendationRequest struct {
	Venue     *model.Venue
	Category  model.Category
	Action    model.Action
	Reason    string
	Priority  int
	ExpiresIn time.Duration // zero means no expiry
}

// Finding pairs an alert candidate with the recommendation it implies, if any.
type Finding struct {
	Alert model.AlertCandidate
	Rec   *RecommendationRequest
}

// Input is everything one venue contributes to a single evaluation.
type Input struct {
	Snapshot  *model.MarketSnapshot
	Depths    map[float64]model.DepthMeasurement // keyed by band percent
	UserDepth map[float64]model.UserDepth        // nil when no credentials
	HasOrders bool                               // operator has open orders this run
	Metrics   *model.MetricsSnapshot
}

// Evaluate runs every threshold rule against one venue's current state. It is
// a pure function: no clock, no store, no side effects. Each metric selects at
// most one severity tier per run (critical wins over warning); distinct
// metrics fire independently.
func Evaluate(s config.Settings, in Input) []Finding {
	var findings []Finding

	venue := in.Snapshot.Venue
	findings = append(findings, evalSpread(s, venue, in.Snapshot)...)
	findings = append(findings, evalDepth(s, venue, in.Depths)...)
	findings = append(findings, evalPriceChange(s, venue, in.Snapshot)...)
	findings = append(findings, evalInventory(venue, in)...)
	findings = append(findings, evalVolumeSpike(s, venue, in.Metrics)...)

	return findings
}

func evalSpread(s config.Settings, venue model.Venue, snap *model.MarketSnapshot) []Finding {
	spread := snap.SpreadPercent

	switch {
	case spread >= s.SpreadCriticalPct:
		return []Finding{{
			Alert: model.AlertCandidate{
				Type:     model.AlertSpreadCritical,
				Severity: model.SeverityCritical,
				Venue:    &venue,
				Message:  fmt.Sprintf("Spread on %s is %.2f%%, at or above the %.2f%% critical threshold", venue, spread, s.SpreadCriticalPct),
				Details: map[string]float64{
					"spread_percent": spread,
					"best_bid":       snap.BestBid,
					"best_ask":       snap.BestAsk,
				},
			},
			Rec: &RecommendationRequest{
				Venue:     &venue,
				Category:  model.CategorySpread,
				Action:    model.ActionTightenSpread,
				Reason:    fmt.Sprintf("spread %.2f%% exceeds critical threshold %.2f%%", spread, s.SpreadCriticalPct),
				Priority:  9,
				ExpiresIn: 2 * time.Hour,
			},
		}}
	case spread >= s.SpreadWarningPct:
		return []Finding{{
			Alert: model.AlertCandidate{
				Type:     model.AlertSpreadWarning,
				Severity: model.SeverityWarning,
				Venue:    &venue,
				Message:  fmt.Sprintf("Spread on %s is %.2f%%, above the %.2f%% warning threshold", venue, spread, s.SpreadWarningPct),
				Details: map[string]float64{
					"spread_percent": spread,
					"best_bid":       snap.BestBid,
					"best_ask":       snap.BestAsk,
				},
			},
		}}
	}

	return nil
}

func evalDepth(s config.Settings, venue model.Venue, depths map[float64]model.DepthMeasurement) []Finding {
	d, ok := depths[2]
	if !ok {
		return nil
	}
	total := d.TotalValue()

	details := map[string]float64{
		"band_percent":    2,
		"bid_value":       d.BidValue,
		"ask_value":       d.AskValue,
		"total_value_usd": total,
	}

	switch {
	case total < s.DepthCriticalUSD:
		return []Finding{{
			Alert: model.AlertCandidate{
				Type:     model.AlertDepthCritical,
				Severity: model.SeverityCritical,
				Venue:    &venue,
				Message:  fmt.Sprintf("2%% depth on %s is $%.0f, below the $%.0f critical threshold", venue, total, s.DepthCriticalUSD),
				Details:  details,
			},
			Rec: &RecommendationRequest{
				Venue:     &venue,
				Category:  model.CategoryDepth,
				Action:    model.ActionAddLiquidity,
				Reason:    fmt.Sprintf("2%% band depth $%.0f below critical threshold $%.0f", total, s.DepthCriticalUSD),
				Priority:  10,
				ExpiresIn: time.Hour,
			},
		}}
	case total < s.DepthWarningUSD:
		return []Finding{{
			Alert: model.AlertCandidate{
				Type:     model.AlertDepthWarning,
				Severity: model.SeverityWarning,
				Venue:    &venue,
				Message:  fmt.Sprintf("2%% depth on %s is $%.0f, below the $%.0f warning threshold", venue, total, s.DepthWarningUSD),
				Details:  details,
			},
		}}
	}

	return nil
}

func evalPriceChange(s config.Settings, venue model.Venue, snap *model.MarketSnapshot) []Finding {
	change := math.Abs(snap.PriceChangePct)
	details := map[string]float64{
		"price_change_pct": snap.PriceChangePct,
		"last_price":       snap.LastPrice,
		"high_24h":         snap.High24h,
		"low_24h":          snap.Low24h,
	}

	switch {
	case change >= s.LiquidityPullPct:
		return []Finding{{
			Alert: model.AlertCandidate{
				Type:     model.AlertPriceChangeCritical,
				Severity: model.SeverityCritical,
				Venue:    &venue,
				Message:  fmt.Sprintf("24h price change on %s is %.1f%%, at or above the %.1f%% liquidity-pull threshold", venue, snap.PriceChangePct, s.LiquidityPullPct),
				Details:  details,
			},
			Rec: &RecommendationRequest{
				Venue:     &venue,
				Category:  model.CategoryVolatility,
				Action:    model.ActionPullLiquidity,
				Reason:    fmt.Sprintf("24h move %.1f%% exceeds pull threshold %.1f%%", snap.PriceChangePct, s.LiquidityPullPct),
				Priority:  10,
				ExpiresIn: 4 * time.Hour,
			},
		}}
	case change >= s.PriceChangeCriticalPct:
		return []Finding{{
			Alert: model.AlertCandidate{
				Type:     model.AlertPriceChangeWarning,
				Severity: model.SeverityWarning,
				Venue:    &venue,
				Message:  fmt.Sprintf("24h price change on %s is %.1f%%, above the %.1f%% volatility threshold", venue, snap.PriceChangePct, s.PriceChangeCriticalPct),
				Details:  details,
			},
			Rec: &RecommendationRequest{
				Venue:     &venue,
				Category:  model.CategoryVolatility,
				Action:    model.ActionReduceExposure,
				Reason:    fmt.Sprintf("24h move %.1f%% exceeds volatility threshold %.1f%%", snap.PriceChangePct, s.PriceChangeCriticalPct),
				Priority:  7,
				ExpiresIn: 6 * time.Hour,
			},
		}}
	case change >= s.PriceChangeWarningPct:
		return []Finding{{
			Alert: model.AlertCandidate{
				Type:     model.AlertPriceChangeNotice,
				Severity: model.SeverityInfo,
				Venue:    &venue,
				Message:  fmt.Sprintf("24h price change on %s is %.1f%%", venue, snap.PriceChangePct),
				Details:  details,
			},
		}}
	}

	return nil
}

func evalInventory(venue model.Venue, in Input) []Finding {
	if !in.HasOrders || in.UserDepth == nil {
		return nil
	}
	ud, ok := in.UserDepth[5]
	if !ok {
		return nil
	}

	var findings []Finding

	ownTotal := ud.BidValue + ud.AskValue
	if ownTotal > 0 {
		bidFrac := ud.BidValue / ownTotal
		askFrac := ud.AskValue / ownTotal

		var action model.Action
		var heavy string
		var frac float64
		switch {
		case bidFrac > skewLimit:
			action, heavy, frac = model.ActionRebalanceAsk, "bid", bidFrac
		case askFrac > skewLimit:
			action, heavy, frac = model.ActionRebalanceBid, "ask", askFrac
		}

		if action != "" {
			findings = append(findings, Finding{
				Alert: model.AlertCandidate{
					Type:     model.AlertInventorySkew,
					Severity: model.SeverityCritical,
					Venue:    &venue,
					Message:  fmt.Sprintf("Open-order inventory on %s is %.0f%% %s-side within the 5%% band", venue, frac*100, heavy),
					Details: map[string]float64{
						"bid_value": ud.BidValue,
						"ask_value": ud.AskValue,
					},
				},
				Rec: &RecommendationRequest{
					Venue:     &venue,
					Category:  model.CategoryInventory,
					Action:    action,
					Reason:    fmt.Sprintf("%.0f%% of own 5%% band depth is on the %s side", frac*100, heavy),
					Priority:  6,
					ExpiresIn: 4 * time.Hour,
				},
			})
		}
	}

	marketTotal := 0.0
	if md, ok := in.Depths[5]; ok {
		marketTotal = md.TotalValue()
	}
	share := 0.0
	if marketTotal > 0 {
		share = ownTotal / marketTotal * 100
	}
	if share < minLiquiditySharePct {
		findings = append(findings, Finding{
			Alert: model.AlertCandidate{
				Type:     model.AlertLowLiquidityShare,
				Severity: model.SeverityInfo,
				Venue:    &venue,
				Message:  fmt.Sprintf("Own liquidity is %.1f%% of the 5%% band market depth on %s", share, venue),
				Details: map[string]float64{
					"share_percent":      share,
					"own_value_usd":      ownTotal,
					"market_value_usd":   marketTotal,
				},
			},
		})
	}

	return findings
}

func evalVolumeSpike(s config.Settings, venue model.Venue, m *model.MetricsSnapshot) []Finding {
	if m == nil || m.Volume24h <= 0 || s.VolumeSpikeMultiple <= 0 {
		return nil
	}
	// Skip until there is history beyond the trailing hour, otherwise the 1h
	// window and the 24h hourly average are the same sample.
	if m.TradeCount24h <= m.TradeCount1h {
		return nil
	}

	hourlyAvg := m.Volume24h / 24
	if m.Volume1h <= s.VolumeSpikeMultiple*hourlyAvg {
		return nil
	}

	return []Finding{{
		Alert: model.AlertCandidate{
			Type:     model.AlertVolumeSpike,
			Severity: model.SeverityWarning,
			Venue:    &venue,
			Message:  fmt.Sprintf("1h volume on %s is %.1fx the trailing 24h hourly average", venue, m.Volume1h/hourlyAvg),
			Details: map[string]float64{
				"volume_1h":        m.Volume1h,
				"hourly_avg_24h":   hourlyAvg,
				"spike_multiple":   m.Volume1h / hourlyAvg,
			},
		},
	}}
}
