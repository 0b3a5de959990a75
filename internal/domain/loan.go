// Package domain holds the platform-side object graph the bridge reads from
// and writes to. These are plain data types; services own all behavior.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	id "losbridge/pkg/domain"
)

// Money is the platform money representation: integer minor units plus an
// ISO currency code. The external system works in decimal major units, so the
// mapping layer converts at the boundary and must round-trip exactly for
// integer cent amounts.
type Money struct {
	Cents    int64
	Currency string
}

// USD constructs a dollar amount from cents.
func USD(cents int64) *Money {
	return &Money{Cents: cents, Currency: "USD"}
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Borrower carries the borrower fields mirrored into the external system.
// SSN is sensitive: it is encrypted by the mapping layer before it crosses
// the wire and must never be logged in plaintext.
type Borrower struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	SSN         string
	EntityName  string
	EntityEIN   string
	CreditScore int
}

// Property carries the subject property fields.
type Property struct {
	StreetAddress string
	City          string
	State         string
	PostalCode    string
	PropertyType  string
	UnitCount     int
	MonthlyRent   *Money
	AnnualTaxes   *Money
	AnnualIns     *Money
}

// Application is the platform application as the bridge sees it. The full
// relational model lives outside this subsystem; only mapped fields appear.
type Application struct {
	ID             id.ApplicationID
	Status         string
	LoanPurpose    string
	LoanAmount     *Money
	PurchasePrice  *Money
	AppraisedValue *Money
	InterestRate   decimal.Decimal
	TermMonths     int
	ClosingDate    time.Time
	SubmittedAt    time.Time
}

// Metrics are derived underwriting figures pushed through the extension
// mapping table. The bridge never computes these; it only mirrors them.
type Metrics struct {
	DSCR      decimal.Decimal
	LTV       decimal.Decimal
	NetIncome *Money
	GrossRent *Money
}

// Pricing carries locked pricing fields.
type Pricing struct {
	LockedRate  decimal.Decimal
	Points      decimal.Decimal
	LockExpires time.Time
	PricingTier string
}

// Vendor carries third-party valuation data mirrored for reference.
type Vendor struct {
	AVMValue      *Money
	FloodZone     string
	ValuationDate time.Time
}

// Tracking carries the platform identifiers written onto the external loan so
// that an orphaned record can be re-attached by searching the tracking field.
type Tracking struct {
	ApplicationID string
	Source        string
	LinkedAt      time.Time
}

// Snapshot is the unit the mapping engine walks. A nil section means "not
// provided": partial pushes populate only the sections they touch, and
// accessors skip absent values instead of erroring.
type Snapshot struct {
	Application *Application
	Borrower    *Borrower
	Property    *Property
	Metrics     *Metrics
	Pricing     *Pricing
	Vendor      *Vendor
	Tracking    *Tracking
}
