package pricing

import (
	"math/rand"
	"testing"

	"github.com/clinicpos/diagnostics-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pct(s string) Rate {
	return Rate{Percent: d(s)}
}

func items(prices ...string) []LineItem {
	out := make([]LineItem, 0, len(prices))
	for i, p := range prices {
		out = append(out, LineItem{ID: uuid.New(), Name: "test " + string(rune('A'+i)), Price: d(p)})
	}
	return out
}

func TestCalculate_DiscountOnly(t *testing.T) {
	tendered := d("800")
	res, err := Calculate(Input{
		Items:    items("600", "400"),
		Discount: pct("20"),
		Coverage: pct("0"),
		Tendered: &tendered,
	})
	require.NoError(t, err)

	assert.True(t, d("1000").Equal(res.Gross))
	assert.True(t, d("200.00").Equal(res.DiscountAmount))
	assert.True(t, d("800.00").Equal(res.Net))
	assert.True(t, res.Change.IsZero())
	assert.True(t, res.Balance.IsZero())
	assert.Equal(t, enum.PaymentStatusPaid, res.PaymentStatus)
}

func TestCalculate_CoverageAppliesAfterDiscount(t *testing.T) {
	res, err := Calculate(Input{
		Items:    items("600", "400"),
		Discount: pct("20"),
		Coverage: pct("50"),
	})
	require.NoError(t, err)

	assert.True(t, d("200.00").Equal(res.DiscountAmount))
	assert.True(t, d("400.00").Equal(res.CoverageAmount))
	assert.True(t, d("400.00").Equal(res.Net))
	assert.True(t, res.Tendered.Equal(res.Net), "tendered defaults to net")
	assert.Equal(t, enum.PaymentStatusPaid, res.PaymentStatus)
}

func TestCalculate_EmptySelection(t *testing.T) {
	_, err := Calculate(Input{})
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestCalculate_UnderpaymentLeavesBalance(t *testing.T) {
	tendered := d("500")
	res, err := Calculate(Input{Items: items("750.50"), Tendered: &tendered})
	require.NoError(t, err)

	assert.True(t, d("250.50").Equal(res.Balance))
	assert.True(t, res.Change.IsZero())
	assert.Equal(t, enum.PaymentStatusPending, res.PaymentStatus)
}

func TestCalculate_Overpayment(t *testing.T) {
	tendered := d("1000")
	res, err := Calculate(Input{Items: items("350"), Tendered: &tendered})
	require.NoError(t, err)

	assert.True(t, d("650").Equal(res.Change))
	assert.True(t, res.Balance.IsZero())
}

func TestCalculate_RoundsHalfUpAtEachStep(t *testing.T) {
	// 333.33 * 12.5% = 41.66625 -> 41.67; (333.33-41.67) * 33.33% = 97.21...
	res, err := Calculate(Input{
		Items:    items("333.33"),
		Discount: pct("12.5"),
		Coverage: pct("33.33"),
	})
	require.NoError(t, err)

	assert.Equal(t, "41.67", res.DiscountAmount.StringFixed(2))
	assert.Equal(t, "97.21", res.CoverageAmount.StringFixed(2))
	assert.Equal(t, "194.45", res.Net.StringFixed(2))
}

func TestCalculate_FullCoverageNeverNegative(t *testing.T) {
	res, err := Calculate(Input{
		Items:    items("100"),
		Discount: pct("100"),
		Coverage: pct("100"),
	})
	require.NoError(t, err)
	assert.True(t, res.Net.IsZero())
}

func TestCalculate_RejectsInvalidInput(t *testing.T) {
	negative := d("-1")
	cases := map[string]Input{
		"discount above 100": {Items: items("100"), Discount: pct("100.01")},
		"negative coverage":  {Items: items("100"), Coverage: pct("-5")},
		"negative tendered":  {Items: items("100"), Tendered: &negative},
		"negative price":     {Items: items("-10")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Calculate(in)
			var inputErr *InputError
			assert.ErrorAs(t, err, &inputErr)
		})
	}
}

func TestCalculate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 1 + r.Intn(6)
		prices := make([]string, n)
		for j := range prices {
			prices[j] = decimal.New(int64(r.Intn(500000)), -2).String()
		}
		in := Input{
			Items:    items(prices...),
			Discount: Rate{Percent: decimal.New(int64(r.Intn(10001)), -2)},
			Coverage: Rate{Percent: decimal.New(int64(r.Intn(10001)), -2)},
		}
		if r.Intn(2) == 0 {
			tendered := decimal.New(int64(r.Intn(1000000)), -2)
			in.Tendered = &tendered
		}

		res, err := Calculate(in)
		require.NoError(t, err)

		expectedNet := res.Gross.Sub(res.DiscountAmount).Sub(res.CoverageAmount)
		if expectedNet.IsNegative() {
			expectedNet = decimal.Zero
		}
		assert.True(t, expectedNet.Equal(res.Net), "net mismatch for %+v", in)
		assert.False(t, res.Net.IsNegative())
		assert.False(t, res.Change.IsPositive() && res.Balance.IsPositive(), "change and balance both positive")
		assert.Equal(t, !res.Balance.IsPositive(), res.PaymentStatus == enum.PaymentStatusPaid)
	}
}

func TestResolveRate(t *testing.T) {
	known := uuid.New()
	unknown := uuid.New()
	raw := d("15")

	t.Run("no selection is zero", func(t *testing.T) {
		r, err := ResolveRate("discount", nil, nil)
		require.NoError(t, err)
		assert.True(t, r.Percent.IsZero())
		assert.Nil(t, r.ID)
	})

	t.Run("known id uses the catalog rate", func(t *testing.T) {
		catalog := &Rate{ID: &known, Name: "Senior Citizen", Percent: d("20")}
		r, err := ResolveRate("discount", &Selection{ID: &known, Rate: &raw}, catalog)
		require.NoError(t, err)
		assert.Equal(t, "Senior Citizen", r.Name)
		assert.True(t, d("20").Equal(r.Percent))
		assert.Equal(t, &known, r.ID)
	})

	t.Run("unknown id falls back to raw rate", func(t *testing.T) {
		r, err := ResolveRate("discount", &Selection{ID: &unknown, Name: "Employee", Rate: &raw}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Employee", r.Name)
		assert.True(t, raw.Equal(r.Percent))
		assert.Nil(t, r.ID)
	})

	t.Run("unknown id without raw rate is zero", func(t *testing.T) {
		r, err := ResolveRate("discount", &Selection{ID: &unknown}, nil)
		require.NoError(t, err)
		assert.True(t, r.Percent.IsZero())
	})

	t.Run("raw rate out of range", func(t *testing.T) {
		bad := d("150")
		_, err := ResolveRate("coverage", &Selection{Rate: &bad}, nil)
		var inputErr *InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "coverage", inputErr.Field)
	})
}
