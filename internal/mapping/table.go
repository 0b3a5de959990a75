package mapping

import (
	"losbridge/internal/domain"
)

// FieldMapping is one declarative entry in the mapping table.
//
// PlatformPath documents where the value lives on the platform side; the
// typed Get/Set accessors are the executable form of that path. Keeping the
// accessors on the entry preserves compile-time safety while the table stays
// data-driven for which fields map.
type FieldMapping struct {
	PlatformPath    string
	ExternalFieldID string
	Transform       Transform
	// Bidirectional entries participate in external-to-platform conversion.
	// One-way entries only push.
	Bidirectional bool
	// Required is informational: the external system rejects creates missing
	// these, but the engine itself never enforces it.
	Required bool

	// Get resolves the platform value. ok=false means absent, which skips the
	// entry rather than erroring.
	Get func(*domain.Snapshot) (any, bool)
	// Set writes a converted external value back into the snapshot, creating
	// intermediate sections as needed. Nil for one-way entries.
	Set func(*domain.Snapshot, any)
}

// StandardMappings covers the borrower, property, and loan core. The full
// table the engine walks is this plus ExtensionMappings.
func StandardMappings() []FieldMapping {
	return []FieldMapping{
		{
			PlatformPath: "borrower.firstName", ExternalFieldID: "4000",
			Transform: TransformDirect, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(borrowerGet(s).FirstName) },
			Set: func(s *domain.Snapshot, v any) { borrowerOf(s).FirstName = asString(v) },
		},
		{
			PlatformPath: "borrower.lastName", ExternalFieldID: "4002",
			Transform: TransformDirect, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(borrowerGet(s).LastName) },
			Set: func(s *domain.Snapshot, v any) { borrowerOf(s).LastName = asString(v) },
		},
		{
			PlatformPath: "borrower.email", ExternalFieldID: "1240",
			Transform: TransformDirect, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(borrowerGet(s).Email) },
			Set: func(s *domain.Snapshot, v any) { borrowerOf(s).Email = asString(v) },
		},
		{
			PlatformPath: "borrower.phone", ExternalFieldID: "66",
			Transform: TransformNormalizePhone, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(borrowerGet(s).Phone) },
			Set: func(s *domain.Snapshot, v any) { borrowerOf(s).Phone = asString(v) },
		},
		{
			// Push-only: the encrypted value never syncs back.
			PlatformPath: "borrower.ssn", ExternalFieldID: "65",
			Transform: TransformEncrypt, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(borrowerGet(s).SSN) },
		},
		{
			PlatformPath: "borrower.entityName", ExternalFieldID: "CX.ENTITY_NAME",
			Transform: TransformDirect, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(borrowerGet(s).EntityName) },
			Set: func(s *domain.Snapshot, v any) { borrowerOf(s).EntityName = asString(v) },
		},
		{
			PlatformPath: "borrower.entityEIN", ExternalFieldID: "CX.ENTITY_EIN",
			Transform: TransformEncrypt,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(borrowerGet(s).EntityEIN) },
		},
		{
			PlatformPath: "borrower.creditScore", ExternalFieldID: "CX.CREDIT_SCORE",
			Transform: TransformDirect, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentInt(borrowerGet(s).CreditScore) },
			Set: func(s *domain.Snapshot, v any) { borrowerOf(s).CreditScore = asInt(v) },
		},

		{
			PlatformPath: "property.streetAddress", ExternalFieldID: "11",
			Transform: TransformNormalizeAddress, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(propertyGet(s).StreetAddress) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).StreetAddress = asString(v) },
		},
		{
			PlatformPath: "property.city", ExternalFieldID: "12",
			Transform: TransformDirect, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(propertyGet(s).City) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).City = asString(v) },
		},
		{
			PlatformPath: "property.state", ExternalFieldID: "14",
			Transform: TransformDirect, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(propertyGet(s).State) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).State = asString(v) },
		},
		{
			PlatformPath: "property.postalCode", ExternalFieldID: "15",
			Transform: TransformDirect, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(propertyGet(s).PostalCode) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).PostalCode = asString(v) },
		},
		{
			PlatformPath: "property.propertyType", ExternalFieldID: "1041",
			Transform: TransformPropertyType, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(propertyGet(s).PropertyType) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).PropertyType = asString(v) },
		},
		{
			PlatformPath: "property.unitCount", ExternalFieldID: "16",
			Transform: TransformDirect, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentInt(propertyGet(s).UnitCount) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).UnitCount = asInt(v) },
		},
		{
			PlatformPath: "property.monthlyRent", ExternalFieldID: "CX.MONTHLY_RENT",
			Transform: TransformFromCents, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(propertyGet(s).MonthlyRent) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).MonthlyRent = asMoney(v) },
		},
		{
			PlatformPath: "property.annualTaxes", ExternalFieldID: "1405",
			Transform: TransformFromCents, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(propertyGet(s).AnnualTaxes) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).AnnualTaxes = asMoney(v) },
		},
		{
			PlatformPath: "property.annualInsurance", ExternalFieldID: "230",
			Transform: TransformFromCents, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(propertyGet(s).AnnualIns) },
			Set: func(s *domain.Snapshot, v any) { propertyOf(s).AnnualIns = asMoney(v) },
		},

		{
			PlatformPath: "application.loanAmount", ExternalFieldID: "1109",
			Transform: TransformFromCents, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(applicationGet(s).LoanAmount) },
			Set: func(s *domain.Snapshot, v any) { applicationOf(s).LoanAmount = asMoney(v) },
		},
		{
			PlatformPath: "application.purchasePrice", ExternalFieldID: "136",
			Transform: TransformFromCents, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(applicationGet(s).PurchasePrice) },
			Set: func(s *domain.Snapshot, v any) { applicationOf(s).PurchasePrice = asMoney(v) },
		},
		{
			PlatformPath: "application.appraisedValue", ExternalFieldID: "356",
			Transform: TransformFromCents, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentMoney(applicationGet(s).AppraisedValue) },
			Set: func(s *domain.Snapshot, v any) { applicationOf(s).AppraisedValue = asMoney(v) },
		},
		{
			PlatformPath: "application.interestRate", ExternalFieldID: "3",
			Transform: TransformRoundDecimal, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentDecimal(applicationGet(s).InterestRate) },
			Set: func(s *domain.Snapshot, v any) { applicationOf(s).InterestRate = asDecimal(v) },
		},
		{
			PlatformPath: "application.termMonths", ExternalFieldID: "4",
			Transform: TransformDirect, Bidirectional: true, Required: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentInt(applicationGet(s).TermMonths) },
			Set: func(s *domain.Snapshot, v any) { applicationOf(s).TermMonths = asInt(v) },
		},
		{
			PlatformPath: "application.loanPurpose", ExternalFieldID: "19",
			Transform: TransformLoanPurpose, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(applicationGet(s).LoanPurpose) },
			Set: func(s *domain.Snapshot, v any) { applicationOf(s).LoanPurpose = asString(v) },
		},
		{
			PlatformPath: "application.closingDate", ExternalFieldID: "763",
			Transform: TransformToDate, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentTime(applicationGet(s).ClosingDate) },
			Set: func(s *domain.Snapshot, v any) { applicationOf(s).ClosingDate = asTime(v) },
		},
		{
			PlatformPath: "application.status", ExternalFieldID: "CX.PLATFORM_STATUS",
			Transform: TransformDirect, Bidirectional: true,
			Get: func(s *domain.Snapshot) (any, bool) { return presentString(applicationGet(s).Status) },
			Set: func(s *domain.Snapshot, v any) { applicationOf(s).Status = asString(v) },
		},
	}
}

// -----------------------------------------------------------------------------
// Accessor helpers
// -----------------------------------------------------------------------------

var (
	emptyApplication domain.Application
	emptyBorrower    domain.Borrower
	emptyProperty    domain.Property
	emptyMetrics     domain.Metrics
	emptyPricing     domain.Pricing
	emptyVendor      domain.Vendor
	emptyTracking    domain.Tracking
)

// *Get helpers read through a possibly-nil section without allocating.
func applicationGet(s *domain.Snapshot) *domain.Application {
	if s.Application == nil {
		return &emptyApplication
	}
	return s.Application
}

func borrowerGet(s *domain.Snapshot) *domain.Borrower {
	if s.Borrower == nil {
		return &emptyBorrower
	}
	return s.Borrower
}

func propertyGet(s *domain.Snapshot) *domain.Property {
	if s.Property == nil {
		return &emptyProperty
	}
	return s.Property
}

func metricsGet(s *domain.Snapshot) *domain.Metrics {
	if s.Metrics == nil {
		return &emptyMetrics
	}
	return s.Metrics
}

func pricingGet(s *domain.Snapshot) *domain.Pricing {
	if s.Pricing == nil {
		return &emptyPricing
	}
	return s.Pricing
}

func vendorGet(s *domain.Snapshot) *domain.Vendor {
	if s.Vendor == nil {
		return &emptyVendor
	}
	return s.Vendor
}

func trackingGet(s *domain.Snapshot) *domain.Tracking {
	if s.Tracking == nil {
		return &emptyTracking
	}
	return s.Tracking
}

// *Of helpers create the section on write, mirroring the dynamic engine's
// "create intermediate containers as needed" behavior.
func applicationOf(s *domain.Snapshot) *domain.Application {
	if s.Application == nil {
		s.Application = &domain.Application{}
	}
	return s.Application
}

func borrowerOf(s *domain.Snapshot) *domain.Borrower {
	if s.Borrower == nil {
		s.Borrower = &domain.Borrower{}
	}
	return s.Borrower
}

func propertyOf(s *domain.Snapshot) *domain.Property {
	if s.Property == nil {
		s.Property = &domain.Property{}
	}
	return s.Property
}

func metricsOf(s *domain.Snapshot) *domain.Metrics {
	if s.Metrics == nil {
		s.Metrics = &domain.Metrics{}
	}
	return s.Metrics
}

func pricingOf(s *domain.Snapshot) *domain.Pricing {
	if s.Pricing == nil {
		s.Pricing = &domain.Pricing{}
	}
	return s.Pricing
}

func vendorOf(s *domain.Snapshot) *domain.Vendor {
	if s.Vendor == nil {
		s.Vendor = &domain.Vendor{}
	}
	return s.Vendor
}
