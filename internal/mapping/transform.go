// Package mapping converts between the platform object graph and the external
// system's flat field-ID namespace. The mapping table is data; this package
// owns the engine that walks it and the transforms the table references.
package mapping

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"losbridge/internal/domain"
)

// Transform identifies a value conversion registered with the Registry.
// Tables reference transforms by identifier; resolution happens at use time.
type Transform string

const (
	TransformDirect           Transform = "direct"
	TransformEncrypt          Transform = "encrypt"
	TransformDecrypt          Transform = "decrypt"
	TransformNormalizeAddress Transform = "normalizeAddress"
	TransformNormalizePhone   Transform = "normalizePhone"
	TransformRoundDecimal     Transform = "roundDecimal"
	TransformToDate           Transform = "toDate"
	TransformToCents          Transform = "toCents"
	TransformFromCents        Transform = "fromCents"

	// Enum transforms are registered per vocabulary.
	TransformPropertyType Transform = "mapEnum.propertyType"
	TransformLoanPurpose  Transform = "mapEnum.loanPurpose"
)

// Direction selects which side of a transform's symmetric contract applies.
type Direction int

const (
	ToExternal Direction = iota
	ToPlatform
)

// externalDateLayout is the ISO-8601 date format the external system uses.
const externalDateLayout = "2006-01-02"

// Codec is one symmetric transform: ToExternal and ToPlatform must round-trip
// for well-formed values. Both sides degrade to identity on unexpected input;
// the engine favors partial synchronization over total failure.
type Codec struct {
	ToExternal func(any) any
	ToPlatform func(any) any
}

// Cipher encrypts sensitive field values (SSN/EIN) before they cross the
// wire. The identity cipher is the default; production wires a real one.
// Ciphertext handling only: values passing through here must never be logged.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type identityCipher struct{}

func (identityCipher) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (identityCipher) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

// Registry resolves transform identifiers to codecs.
type Registry struct {
	cipher Cipher
	codecs map[Transform]Codec
}

// Option configures the Registry.
type Option func(*Registry)

// WithCipher installs the cipher used by the encrypt/decrypt transforms.
func WithCipher(cipher Cipher) Option {
	return func(r *Registry) {
		r.cipher = cipher
	}
}

// NewRegistry builds a registry with the standard transforms and the default
// enum vocabularies installed.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{cipher: identityCipher{}}
	for _, opt := range opts {
		opt(r)
	}
	r.codecs = map[Transform]Codec{
		TransformDirect:           {ToExternal: identity, ToPlatform: identity},
		TransformNormalizeAddress: {ToExternal: normalizeAddress, ToPlatform: normalizeAddress},
		TransformNormalizePhone:   {ToExternal: formatPhone, ToPlatform: stripPhone},
		TransformRoundDecimal:     {ToExternal: roundDecimal4, ToPlatform: roundDecimal4},
		TransformToDate:           {ToExternal: dateToExternal, ToPlatform: dateToPlatform},
		// toCents and fromCents are the two spellings of one symmetric
		// contract: integer minor units on the platform side, decimal major
		// units on the external side.
		TransformToCents:   {ToExternal: moneyToExternal, ToPlatform: moneyToPlatform},
		TransformFromCents: {ToExternal: moneyToExternal, ToPlatform: moneyToPlatform},
		TransformEncrypt:   {ToExternal: r.encrypt, ToPlatform: r.decrypt},
		TransformDecrypt:   {ToExternal: r.decrypt, ToPlatform: r.encrypt},
	}
	r.RegisterEnum(TransformPropertyType, map[string]string{
		"SFR":         "SingleFamily",
		"CONDO":       "Condominium",
		"DUPLEX":      "TwoUnit",
		"TRIPLEX":     "ThreeUnit",
		"QUADPLEX":    "FourUnit",
		"MULTIFAMILY": "MultiFamily",
	})
	r.RegisterEnum(TransformLoanPurpose, map[string]string{
		"PURCHASE":          "Purchase",
		"RATE_TERM_REFI":    "NoCashOutRefinance",
		"CASH_OUT_REFI":     "CashOutRefinance",
		"DELAYED_FINANCING": "DelayedFinancing",
	})
	return r
}

// RegisterEnum installs a bidirectional enum vocabulary under the given
// transform identifier. Unmapped values pass through unchanged.
func (r *Registry) RegisterEnum(name Transform, platformToExternal map[string]string) {
	externalToPlatform := make(map[string]string, len(platformToExternal))
	for platform, external := range platformToExternal {
		externalToPlatform[external] = platform
	}
	r.codecs[name] = Codec{
		ToExternal: mapEnum(platformToExternal),
		ToPlatform: mapEnum(externalToPlatform),
	}
}

// Apply runs the named transform in the given direction. Unknown transforms
// pass the value through unchanged rather than failing.
func (r *Registry) Apply(name Transform, dir Direction, value any) any {
	codec, ok := r.codecs[name]
	if !ok {
		return value
	}
	if dir == ToExternal {
		return codec.ToExternal(value)
	}
	return codec.ToPlatform(value)
}

func identity(v any) any { return v }

func (r *Registry) encrypt(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	out, err := r.cipher.Encrypt(s)
	if err != nil {
		return v
	}
	return out
}

func (r *Registry) decrypt(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	out, err := r.cipher.Decrypt(s)
	if err != nil {
		return v
	}
	return out
}

func mapEnum(vocab map[string]string) func(any) any {
	return func(v any) any {
		s, ok := v.(string)
		if !ok {
			return v
		}
		if mapped, ok := vocab[s]; ok {
			return mapped
		}
		return v
	}
}

// normalizeAddress collapses runs of whitespace and trims. Symmetric.
func normalizeAddress(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return strings.Join(strings.Fields(s), " ")
}

// formatPhone renders a 10-digit number as (NNN) NNN-NNNN. Any other digit
// count passes through untouched.
func formatPhone(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	digits := digitsOf(s)
	if len(digits) != 10 {
		return v
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

// stripPhone reduces a formatted 10-digit number back to bare digits.
func stripPhone(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	digits := digitsOf(s)
	if len(digits) != 10 {
		return v
	}
	return digits
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// roundDecimal4 rounds any numeric value to 4 decimal places. Platform side
// stays a decimal.Decimal; external side is emitted as float64.
func roundDecimal4(v any) any {
	d, ok := toDecimal(v)
	if !ok {
		return v
	}
	rounded := d.Round(4)
	if _, isDecimal := v.(decimal.Decimal); isDecimal {
		return rounded
	}
	f, _ := rounded.Float64()
	return f
}

func dateToExternal(v any) any {
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return v
	}
	return t.Format(externalDateLayout)
}

func dateToPlatform(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if t, err := time.Parse(externalDateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return v
}

// moneyToExternal converts platform minor units to a decimal major-unit
// number. Exact for any integer cent amount.
func moneyToExternal(v any) any {
	switch m := v.(type) {
	case *domain.Money:
		if m == nil {
			return v
		}
		f, _ := m.Decimal().Float64()
		return f
	case domain.Money:
		f, _ := m.Decimal().Float64()
		return f
	default:
		return v
	}
}

// moneyToPlatform converts a decimal major-unit number back to integer minor
// units. Round-trips exactly with moneyToExternal for integer cent amounts.
func moneyToPlatform(v any) any {
	d, ok := toDecimal(v)
	if !ok {
		return v
	}
	return &domain.Money{Cents: d.Shift(2).Round(0).IntPart(), Currency: "USD"}
}

// toDecimal coerces the numeric shapes that arrive from JSON decoding and
// platform structs. Non-numeric input reports false, never an error: numeric
// transforms degrade to identity on unexpected shapes.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
