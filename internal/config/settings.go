package config

import (
	"fmt"
	"strconv"
	"time"
)

// Recognized settings-table keys. Everything the monitor tunes at runtime is
// a flat key/value row; missing keys fall back to the defaults below, while a
// present but unparsable value aborts the run.
const (
	KeyDiscordWebhook         = "discord_webhook"
	KeyAlertCooldownMinutes   = "alert_cooldown_minutes"
	KeySpreadWarning          = "spread_warning_threshold"
	KeySpreadCritical         = "spread_critical_threshold"
	KeyDepthWarning           = "depth_warning_threshold"
	KeyDepthCritical          = "depth_critical_threshold"
	KeyPriceChangeWarning     = "price_change_warning"
	KeyPriceChangeCritical    = "price_change_critical"
	KeyLiquidityPullThreshold = "liquidity_pull_threshold"
	KeyVolumeSpikeThreshold   = "volume_spike_threshold"
	KeyMonitoringEnabled      = "monitoring_enabled"
	KeyKuCoinEnabled          = "kucoin_enabled"
	KeyMEXCEnabled            = "mexc_enabled"
)

// Settings is the typed runtime configuration for a single run. It is built
// from the settings table at run start and treated as immutable afterwards.
type Settings struct {
	DiscordWebhook string

	AlertCooldown time.Duration

	// Spread thresholds, percent of mid-price.
	SpreadWarningPct  float64
	SpreadCriticalPct float64

	// Depth thresholds, quote-currency value of the 2% band (bid+ask).
	DepthWarningUSD  float64
	DepthCriticalUSD float64

	// 24h price change thresholds, absolute percent.
	PriceChangeWarningPct  float64
	PriceChangeCriticalPct float64
	LiquidityPullPct       float64

	// 1h volume spike multiple of the trailing 24h hourly average.
	VolumeSpikeMultiple float64

	MonitoringEnabled bool
	KuCoinEnabled     bool
	MEXCEnabled       bool
}

// DefaultSettings returns the documented fallbacks used for missing keys.
func DefaultSettings() Settings {
	return Settings{
		AlertCooldown:          30 * time.Minute,
		SpreadWarningPct:       1.5,
		SpreadCriticalPct:      3.0,
		DepthWarningUSD:        5000,
		DepthCriticalUSD:       2000,
		PriceChangeWarningPct:  5,
		PriceChangeCriticalPct: 10,
		LiquidityPullPct:       20,
		VolumeSpikeMultiple:    3,
		MonitoringEnabled:      true,
		KuCoinEnabled:          true,
		MEXCEnabled:            true,
	}
}

// ParseSettings builds typed settings from the raw key/value rows. A key that
// is present but malformed is a hard error: silent zero-defaults at the point
// of use caused the thresholds to be skipped entirely in the past.
func ParseSettings(raw map[string]string) (Settings, error) {
	s := DefaultSettings()

	if v, ok := raw[KeyDiscordWebhook]; ok {
		s.DiscordWebhook = v
	}

	if err := parseMinutes(raw, KeyAlertCooldownMinutes, &s.AlertCooldown); err != nil {
		return s, err
	}

	floatKeys := []struct {
		key string
		dst *float64
	}{
		{KeySpreadWarning, &s.SpreadWarningPct},
		{KeySpreadCritical, &s.SpreadCriticalPct},
		{KeyDepthWarning, &s.DepthWarningUSD},
		{KeyDepthCritical, &s.DepthCriticalUSD},
		{KeyPriceChangeWarning, &s.PriceChangeWarningPct},
		{KeyPriceChangeCritical, &s.PriceChangeCriticalPct},
		{KeyLiquidityPullThreshold, &s.LiquidityPullPct},
		{KeyVolumeSpikeThreshold, &s.VolumeSpikeMultiple},
	}
	for _, fk := range floatKeys {
		if err := parseFloat(raw, fk.key, fk.dst); err != nil {
			return s, err
		}
	}

	boolKeys := []struct {
		key string
		dst *bool
	}{
		{KeyMonitoringEnabled, &s.MonitoringEnabled},
		{KeyKuCoinEnabled, &s.KuCoinEnabled},
		{KeyMEXCEnabled, &s.MEXCEnabled},
	}
	for _, bk := range boolKeys {
		if err := parseBool(raw, bk.key, bk.dst); err != nil {
			return s, err
		}
	}

	return s, nil
}

func parseFloat(raw map[string]string, key string, dst *float64) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("setting %s: invalid numeric value %q", key, v)
	}
	*dst = f
	return nil
}

func parseBool(raw map[string]string, key string, dst *bool) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("setting %s: invalid boolean value %q", key, v)
	}
	*dst = b
	return nil
}

func parseMinutes(raw map[string]string, key string, dst *time.Duration) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	m, err := strconv.Atoi(v)
	if err != nil || m < 0 {
		return fmt.Errorf("setting %s: invalid minutes value %q", key, v)
	}
	*dst = time.Duration(m) * time.Minute
	return nil
}
