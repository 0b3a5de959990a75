package mapping

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losbridge/internal/domain"
)

func TestMoneyTransformRoundTrip(t *testing.T) {
	registry := NewRegistry()

	cases := []int64{0, 1, 99, 100, 123456, 99999999999, -4250}
	for _, cents := range cases {
		money := domain.USD(cents)
		external := registry.Apply(TransformFromCents, ToExternal, money)
		back := registry.Apply(TransformFromCents, ToPlatform, external)

		result, ok := back.(*domain.Money)
		require.True(t, ok, "expected money back for %d cents, got %T", cents, back)
		assert.Equal(t, cents, result.Cents)
	}
}

func TestMoneyTransformExternalShapes(t *testing.T) {
	registry := NewRegistry()

	t.Run("dollar example", func(t *testing.T) {
		external := registry.Apply(TransformFromCents, ToExternal, domain.USD(123456))
		assert.Equal(t, 1234.56, external)
	})

	t.Run("string input from external system", func(t *testing.T) {
		back := registry.Apply(TransformFromCents, ToPlatform, "1234.56")
		assert.Equal(t, int64(123456), back.(*domain.Money).Cents)
	})

	t.Run("non-numeric passes through", func(t *testing.T) {
		assert.Equal(t, "pending", registry.Apply(TransformFromCents, ToPlatform, "pending"))
	})
}

func TestNormalizePhone(t *testing.T) {
	registry := NewRegistry()

	t.Run("ten digits formatted", func(t *testing.T) {
		out := registry.Apply(TransformNormalizePhone, ToExternal, "5125550199")
		assert.Equal(t, "(512) 555-0199", out)
	})

	t.Run("formatted value stripped back", func(t *testing.T) {
		out := registry.Apply(TransformNormalizePhone, ToPlatform, "(512) 555-0199")
		assert.Equal(t, "5125550199", out)
	})

	t.Run("other digit counts untouched", func(t *testing.T) {
		assert.Equal(t, "+44 20 7946 0958", registry.Apply(TransformNormalizePhone, ToExternal, "+44 20 7946 0958"))
		assert.Equal(t, "911", registry.Apply(TransformNormalizePhone, ToExternal, "911"))
	})
}

func TestRoundDecimal(t *testing.T) {
	registry := NewRegistry()

	out := registry.Apply(TransformRoundDecimal, ToExternal, decimal.RequireFromString("1.234567"))
	assert.True(t, decimal.RequireFromString("1.2346").Equal(out.(decimal.Decimal)))

	// External float input stays a float.
	assert.Equal(t, 7.1250, registry.Apply(TransformRoundDecimal, ToPlatform, 7.12495).(float64))
}

func TestDateTransform(t *testing.T) {
	registry := NewRegistry()
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	external := registry.Apply(TransformToDate, ToExternal, day)
	assert.Equal(t, "2024-06-15", external)

	back := registry.Apply(TransformToDate, ToPlatform, external)
	assert.Equal(t, day, back)

	// RFC3339 timestamps from webhooks parse too.
	ts := registry.Apply(TransformToDate, ToPlatform, "2024-06-15T10:30:00Z")
	assert.Equal(t, time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC), ts)
}

func TestUnknownTransformPassesThrough(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, "value", registry.Apply(Transform("mapEnum.unregistered"), ToExternal, "value"))
}

func TestEnumTransform(t *testing.T) {
	registry := NewRegistry()

	assert.Equal(t, "SingleFamily", registry.Apply(TransformPropertyType, ToExternal, "SFR"))
	assert.Equal(t, "SFR", registry.Apply(TransformPropertyType, ToPlatform, "SingleFamily"))
	// Unmapped vocabulary passes through.
	assert.Equal(t, "HOUSEBOAT", registry.Apply(TransformPropertyType, ToExternal, "HOUSEBOAT"))
}

func TestSecretboxCipherRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cipher, err := NewSecretboxCipher(key)
	require.NoError(t, err)

	registry := NewRegistry(WithCipher(cipher))

	sealed := registry.Apply(TransformEncrypt, ToExternal, "123-45-6789")
	require.IsType(t, "", sealed)
	assert.NotEqual(t, "123-45-6789", sealed)

	opened := registry.Apply(TransformEncrypt, ToPlatform, sealed)
	assert.Equal(t, "123-45-6789", opened)
}

func TestSecretboxCipherRejectsBadKey(t *testing.T) {
	_, err := NewSecretboxCipher([]byte("short"))
	assert.Error(t, err)
}

func TestDefaultCipherIsIdentity(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, "123-45-6789", registry.Apply(TransformEncrypt, ToExternal, "123-45-6789"))
}
