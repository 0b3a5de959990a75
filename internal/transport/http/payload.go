package httptransport

import (
	"time"

	"github.com/shopspring/decimal"

	"losbridge/internal/domain"
	dErrors "losbridge/pkg/domain-errors"
)

// SnapshotPayload is the wire form of a platform snapshot, used both for push
// bodies and pull responses. Sections and fields left null are treated as not
// provided, which is what makes partial pushes work over this API.
type SnapshotPayload struct {
	Application *ApplicationPayload `json:"application,omitempty"`
	Borrower    *BorrowerPayload    `json:"borrower,omitempty"`
	Property    *PropertyPayload    `json:"property,omitempty"`
	Metrics     *MetricsPayload     `json:"metrics,omitempty"`
	Pricing     *PricingPayload     `json:"pricing,omitempty"`
	Vendor      *VendorPayload      `json:"vendor,omitempty"`
}

type ApplicationPayload struct {
	Status         string `json:"status,omitempty"`
	LoanPurpose    string `json:"loanPurpose,omitempty"`
	LoanAmount     *int64 `json:"loanAmountCents,omitempty"`
	PurchasePrice  *int64 `json:"purchasePriceCents,omitempty"`
	AppraisedValue *int64 `json:"appraisedValueCents,omitempty"`
	InterestRate   string `json:"interestRate,omitempty"`
	TermMonths     int    `json:"termMonths,omitempty"`
	ClosingDate    string `json:"closingDate,omitempty"`
	SubmittedAt    string `json:"submittedAt,omitempty"`
}

type BorrowerPayload struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	SSN         string `json:"ssn,omitempty"`
	EntityName  string `json:"entityName,omitempty"`
	EntityEIN   string `json:"entityEin,omitempty"`
	CreditScore int    `json:"creditScore,omitempty"`
}

type PropertyPayload struct {
	StreetAddress string `json:"streetAddress,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	PropertyType  string `json:"propertyType,omitempty"`
	UnitCount     int    `json:"unitCount,omitempty"`
	MonthlyRent   *int64 `json:"monthlyRentCents,omitempty"`
	AnnualTaxes   *int64 `json:"annualTaxesCents,omitempty"`
	AnnualIns     *int64 `json:"annualInsuranceCents,omitempty"`
}

type MetricsPayload struct {
	DSCR      string `json:"dscr,omitempty"`
	LTV       string `json:"ltv,omitempty"`
	NetIncome *int64 `json:"netIncomeCents,omitempty"`
	GrossRent *int64 `json:"grossRentCents,omitempty"`
}

type PricingPayload struct {
	LockedRate  string `json:"lockedRate,omitempty"`
	Points      string `json:"points,omitempty"`
	LockExpires string `json:"lockExpires,omitempty"`
	PricingTier string `json:"pricingTier,omitempty"`
}

type VendorPayload struct {
	AVMValue      *int64 `json:"avmValueCents,omitempty"`
	FloodZone     string `json:"floodZone,omitempty"`
	ValuationDate string `json:"valuationDate,omitempty"`
}

// ToDomain converts the request into the platform snapshot the services
// consume. Invalid decimals or timestamps are invalid input, not mapping
// errors: they never reached the mapping layer.
func (r SnapshotPayload) ToDomain() (*domain.Snapshot, error) {
	snapshot := &domain.Snapshot{}

	if r.Application != nil {
		app := &domain.Application{
			Status:         r.Application.Status,
			LoanPurpose:    r.Application.LoanPurpose,
			LoanAmount:     money(r.Application.LoanAmount),
			PurchasePrice:  money(r.Application.PurchasePrice),
			AppraisedValue: money(r.Application.AppraisedValue),
			TermMonths:     r.Application.TermMonths,
		}
		var err error
		if app.InterestRate, err = parseDecimal(r.Application.InterestRate); err != nil {
			return nil, err
		}
		if app.ClosingDate, err = parseTime(r.Application.ClosingDate); err != nil {
			return nil, err
		}
		if app.SubmittedAt, err = parseTime(r.Application.SubmittedAt); err != nil {
			return nil, err
		}
		snapshot.Application = app
	}

	if r.Borrower != nil {
		snapshot.Borrower = &domain.Borrower{
			FirstName:   r.Borrower.FirstName,
			LastName:    r.Borrower.LastName,
			Email:       r.Borrower.Email,
			Phone:       r.Borrower.Phone,
			SSN:         r.Borrower.SSN,
			EntityName:  r.Borrower.EntityName,
			EntityEIN:   r.Borrower.EntityEIN,
			CreditScore: r.Borrower.CreditScore,
		}
	}

	if r.Property != nil {
		snapshot.Property = &domain.Property{
			StreetAddress: r.Property.StreetAddress,
			City:          r.Property.City,
			State:         r.Property.State,
			PostalCode:    r.Property.PostalCode,
			PropertyType:  r.Property.PropertyType,
			UnitCount:     r.Property.UnitCount,
			MonthlyRent:   money(r.Property.MonthlyRent),
			AnnualTaxes:   money(r.Property.AnnualTaxes),
			AnnualIns:     money(r.Property.AnnualIns),
		}
	}

	if r.Metrics != nil {
		m := &domain.Metrics{
			NetIncome: money(r.Metrics.NetIncome),
			GrossRent: money(r.Metrics.GrossRent),
		}
		var err error
		if m.DSCR, err = parseDecimal(r.Metrics.DSCR); err != nil {
			return nil, err
		}
		if m.LTV, err = parseDecimal(r.Metrics.LTV); err != nil {
			return nil, err
		}
		snapshot.Metrics = m
	}

	if r.Pricing != nil {
		p := &domain.Pricing{PricingTier: r.Pricing.PricingTier}
		var err error
		if p.LockedRate, err = parseDecimal(r.Pricing.LockedRate); err != nil {
			return nil, err
		}
		if p.Points, err = parseDecimal(r.Pricing.Points); err != nil {
			return nil, err
		}
		if p.LockExpires, err = parseTime(r.Pricing.LockExpires); err != nil {
			return nil, err
		}
		snapshot.Pricing = p
	}

	if r.Vendor != nil {
		v := &domain.Vendor{
			AVMValue:  money(r.Vendor.AVMValue),
			FloodZone: r.Vendor.FloodZone,
		}
		var err error
		if v.ValuationDate, err = parseTime(r.Vendor.ValuationDate); err != nil {
			return nil, err
		}
		snapshot.Vendor = v
	}

	return snapshot, nil
}

// SnapshotPayloadFromDomain converts a pulled snapshot back to wire form.
// Only populated sections appear in the response.
func SnapshotPayloadFromDomain(s *domain.Snapshot) SnapshotPayload {
	var p SnapshotPayload

	if s.Application != nil {
		p.Application = &ApplicationPayload{
			Status:         s.Application.Status,
			LoanPurpose:    s.Application.LoanPurpose,
			LoanAmount:     cents(s.Application.LoanAmount),
			PurchasePrice:  cents(s.Application.PurchasePrice),
			AppraisedValue: cents(s.Application.AppraisedValue),
			InterestRate:   formatDecimal(s.Application.InterestRate),
			TermMonths:     s.Application.TermMonths,
			ClosingDate:    formatTime(s.Application.ClosingDate),
			SubmittedAt:    formatTime(s.Application.SubmittedAt),
		}
	}

	if s.Borrower != nil {
		p.Borrower = &BorrowerPayload{
			FirstName:   s.Borrower.FirstName,
			LastName:    s.Borrower.LastName,
			Email:       s.Borrower.Email,
			Phone:       s.Borrower.Phone,
			SSN:         s.Borrower.SSN,
			EntityName:  s.Borrower.EntityName,
			EntityEIN:   s.Borrower.EntityEIN,
			CreditScore: s.Borrower.CreditScore,
		}
	}

	if s.Property != nil {
		p.Property = &PropertyPayload{
			StreetAddress: s.Property.StreetAddress,
			City:          s.Property.City,
			State:         s.Property.State,
			PostalCode:    s.Property.PostalCode,
			PropertyType:  s.Property.PropertyType,
			UnitCount:     s.Property.UnitCount,
			MonthlyRent:   cents(s.Property.MonthlyRent),
			AnnualTaxes:   cents(s.Property.AnnualTaxes),
			AnnualIns:     cents(s.Property.AnnualIns),
		}
	}

	if s.Metrics != nil {
		p.Metrics = &MetricsPayload{
			DSCR:      formatDecimal(s.Metrics.DSCR),
			LTV:       formatDecimal(s.Metrics.LTV),
			NetIncome: cents(s.Metrics.NetIncome),
			GrossRent: cents(s.Metrics.GrossRent),
		}
	}

	if s.Pricing != nil {
		p.Pricing = &PricingPayload{
			LockedRate:  formatDecimal(s.Pricing.LockedRate),
			Points:      formatDecimal(s.Pricing.Points),
			LockExpires: formatTime(s.Pricing.LockExpires),
			PricingTier: s.Pricing.PricingTier,
		}
	}

	if s.Vendor != nil {
		p.Vendor = &VendorPayload{
			AVMValue:      cents(s.Vendor.AVMValue),
			FloodZone:     s.Vendor.FloodZone,
			ValuationDate: formatTime(s.Vendor.ValuationDate),
		}
	}

	return p
}

func money(cents *int64) *domain.Money {
	if cents == nil {
		return nil
	}
	return domain.USD(*cents)
}

func cents(m *domain.Money) *int64 {
	if m == nil {
		return nil
	}
	v := m.Cents
	return &v
}

func formatDecimal(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, dErrors.New(dErrors.CodeInvalidInput, "invalid decimal: "+s)
	}
	return d, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "invalid timestamp: "+s)
	}
	return t, nil
}
