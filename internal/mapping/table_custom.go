package mapping

import (
	"time"

	"github.com/shopspring/decimal"

	"losbridge/internal/domain"
)

// Tracking field IDs written onto every external loan at link time. The
// application ID field doubles as the reverse-lookup key for orphan recovery.
const (
	TrackingFieldAppID    = "CX.PLATFORM_APP_ID"
	TrackingFieldSource   = "CX.PLATFORM_SOURCE"
	TrackingFieldLinkedAt = "CX.PLATFORM_LINKED_AT"
)

// ExtensionMappings covers the custom field namespace: derived underwriting
// metrics, pricing, vendor valuation data, and the platform tracking fields.
func ExtensionMappings() []FieldMapping {
	return []FieldMapping{
		{
			PlatformPath: "metrics.dscr", ExternalFieldID: "CX.DSCR",
			Transform: TransformRoundDecimal, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentDecimal(metricsGet(s).DSCR) },
			Set: func(s *domain.Snapshot, v any) { metricsOf(s).DSCR = asDecimal(v) },
		},
		{
			PlatformPath: "metrics.ltv", ExternalFieldID: "CX.LTV",
			Transform: TransformRoundDecimal, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentDecimal(metricsGet(s).LTV) },
			Set: func(s *domain.Snapshot, v any) { metricsOf(s).LTV = asDecimal(v) },
		},
		{
			PlatformPath: "metrics.netIncome", ExternalFieldID: "CX.NOI",
			Transform: TransformFromCents, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(metricsGet(s).NetIncome) },
			Set: func(s *domain.Snapshot, v any) { metricsOf(s).NetIncome = asMoney(v) },
		},
		{
			PlatformPath: "metrics.grossRent", ExternalFieldID: "CX.GROSS_RENT",
			Transform: TransformFromCents, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(metricsGet(s).GrossRent) },
			Set: func(s *domain.Snapshot, v any) { metricsOf(s).GrossRent = asMoney(v) },
		},

		{
			PlatformPath: "pricing.lockedRate", ExternalFieldID: "CX.LOCK_RATE",
			Transform: TransformRoundDecimal, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentDecimal(pricingGet(s).LockedRate) },
			Set: func(s *domain.Snapshot, v any) { pricingOf(s).LockedRate = asDecimal(v) },
		},
		{
			PlatformPath: "pricing.points", ExternalFieldID: "CX.POINTS",
			Transform: TransformRoundDecimal, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentDecimal(pricingGet(s).Points) },
			Set: func(s *domain.Snapshot, v any) { pricingOf(s).Points = asDecimal(v) },
		},
		{
			PlatformPath: "pricing.lockExpires", ExternalFieldID: "CX.LOCK_EXPIRES",
			Transform: TransformToDate, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentTime(pricingGet(s).LockExpires) },
			Set: func(s *domain.Snapshot, v any) { pricingOf(s).LockExpires = asTime(v) },
		},
		{
			PlatformPath: "pricing.pricingTier", ExternalFieldID: "CX.PRICING_TIER",
			Transform: TransformDirect, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(pricingGet(s).PricingTier) },
			Set: func(s *domain.Snapshot, v any) { pricingOf(s).PricingTier = asString(v) },
		},

		// Vendor data is mirrored for reference only; the platform stays the
		// source of truth, so these never sync back.
		{
			PlatformPath: "vendor.avmValue", ExternalFieldID: "CX.AVM_VALUE",
			Transform: TransformFromCents,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(vendorGet(s).AVMValue) },
		},
		{
			PlatformPath: "vendor.floodZone", ExternalFieldID: "CX.FLOOD_ZONE",
			Transform: TransformDirect,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(vendorGet(s).FloodZone) },
		},
		{
			PlatformPath: "vendor.valuationDate", ExternalFieldID: "CX.VALUATION_DATE",
			Transform: TransformToDate,
			Get: func(s *domain.Snapshot) (any, bool) { return presentTime(vendorGet(s).ValuationDate) },
		},

		// Tracking fields: push-only, written at link time.
		{
			PlatformPath: "tracking.applicationID", ExternalFieldID: TrackingFieldAppID,
			Transform: TransformDirect, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(trackingGet(s).ApplicationID) },
		},
		{
			PlatformPath: "tracking.source", ExternalFieldID: TrackingFieldSource,
			Transform: TransformDirect,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(trackingGet(s).Source) },
		},
		{
			PlatformPath: "tracking.linkedAt", ExternalFieldID: TrackingFieldLinkedAt,
			Transform: TransformToDate,
			Get: func(s *domain.Snapshot) (any, bool) { return presentTime(trackingGet(s).LinkedAt) },
		},
	}
}

// DefaultMappings is the full table: standard plus extension.
func DefaultMappings() []FieldMapping {
	return append(StandardMappings(), ExtensionMappings()...)
}

// -----------------------------------------------------------------------------
// Presence and coercion helpers shared by both tables
// -----------------------------------------------------------------------------

func presentString(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}

func presentInt(n int) (any, bool) {
	if n == 0 {
		return nil, false
	}
	return n, true
}

func presentMoney(m *domain.Money) (any, bool) {
	if m == nil {
		return nil, false
	}
	return m, true
}

func presentDecimal(d decimal.Decimal) (any, bool) {
	if d.IsZero() {
		return nil, false
	}
	return d, true
}

func presentTime(t time.Time) (any, bool) {
	if t.IsZero() {
		return nil, false
	}
	return t, true
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	d, ok := toDecimal(v)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

func asMoney(v any) *domain.Money {
	m, _ := v.(*domain.Money)
	return m
}

func asDecimal(v any) decimal.Decimal {
	d, _ := toDecimal(v)
	return d
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}
