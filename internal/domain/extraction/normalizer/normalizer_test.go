package normalizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		hint string
		want time.Time
	}{
		{"iso date", "2025-03-14", DateFormatYMD, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"european slash", "14/03/2025", DateFormatDMY, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"us slash", "03/14/2025", DateFormatMDY, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"short year", "14/03/25", DateFormatDMY, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"written month", "14 Mar 2025", DateFormatDMY, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"us written month", "Mar 14, 2025", DateFormatMDY, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"dotted", "14.03.2025", DateFormatDMY, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"fallback without hint", "2025-03-14", "", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"surrounding whitespace", "  14/03/2025 ", DateFormatDMY, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw, tt.hint)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}

	t.Run("empty date", func(t *testing.T) {
		_, err := ParseDate("  ", DateFormatDMY)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseDate("not a date", DateFormatDMY)
		assert.Error(t, err)
	})

	t.Run("hint disambiguates", func(t *testing.T) {
		dmy, err := ParseDate("01/02/2025", DateFormatDMY)
		require.NoError(t, err)
		mdy, err := ParseDate("01/02/2025", DateFormatMDY)
		require.NoError(t, err)
		assert.Equal(t, time.February, dmy.Month())
		assert.Equal(t, time.January, mdy.Month())
	})
}

func TestDetectDateFormat(t *testing.T) {
	tests := []struct {
		name    string
		samples []string
		want    string
	}{
		{"iso wins immediately", []string{"2025-01-02", "13/01/2025"}, DateFormatYMD},
		{"day over twelve", []string{"05/01/2025", "13/01/2025", "28/02/2025"}, DateFormatDMY},
		{"month first", []string{"01/13/2025", "02/28/2025"}, DateFormatMDY},
		{"ambiguous defaults to dmy", []string{"01/02/2025", "03/04/2025"}, DateFormatDMY},
		{"empty", nil, DateFormatDMY},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDateFormat(tt.samples))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		european bool
		want     string
	}{
		{"plain", "123.45", false, "123.45"},
		{"negative", "-123.45", false, "-123.45"},
		{"thousands", "1,234,567.89", false, "1234567.89"},
		{"parentheses", "(45.00)", false, "-45"},
		{"trailing minus", "45.00-", false, "-45"},
		{"debit suffix", "45.00 DR", false, "-45"},
		{"credit suffix", "45.00 CR", false, "45"},
		{"currency symbol", "$1,200.50", false, "1200.5"},
		{"euro symbol", "€88,20", true, "88.2"},
		{"european grouping", "1.234,56", true, "1234.56"},
		{"european negative", "-1.234,56", true, "-1234.56"},
		{"integer", "500", false, "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw, tt.european)
			require.NoError(t, err)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s want %s", got, want)
		})
	}

	t.Run("empty", func(t *testing.T) {
		_, err := ParseAmount("", false)
		assert.Error(t, err)
	})

	t.Run("no digits", func(t *testing.T) {
		_, err := ParseAmount("N/A", false)
		assert.Error(t, err)
	})
}

func TestDetectEuropeanFormat(t *testing.T) {
	tests := []struct {
		name     string
		samples  []string
		european bool
		decided  bool
	}{
		{"us decimals", []string{"12.50", "1,300.00", "8.99"}, false, true},
		{"european decimals", []string{"12,50", "1.300,00", "8,99"}, true, true},
		{"mixed separators decide by position", []string{"1.234,56"}, true, true},
		{"integers give no signal", []string{"100", "250"}, false, false},
		{"empty", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			european, decided := DetectEuropeanFormat(tt.samples)
			assert.Equal(t, tt.decided, decided)
			if decided {
				assert.Equal(t, tt.european, european)
			}
		})
	}
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"collapses whitespace", "POS   PURCHASE \t STARBUCKS", "POS PURCHASE STARBUCKS"},
		{"strips control chars", "CAFE\x00 BAR\x1b", "CAFE BAR"},
		{"trims", "  payment  ", "payment"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDescription(tt.raw))
		})
	}
}

func TestDetectAccountNumber(t *testing.T) {
	t.Run("labelled account", func(t *testing.T) {
		got := DetectAccountNumber("Statement for Account No: 12-3456-7890\nPeriod: Jan 2025")
		require.NotNil(t, got)
		assert.Equal(t, "12-3456-7890", *got)
	})

	t.Run("masked digits", func(t *testing.T) {
		got := DetectAccountNumber("Account Number ****5678")
		require.NotNil(t, got)
		assert.Equal(t, "****5678", *got)
	})

	t.Run("iban", func(t *testing.T) {
		got := DetectAccountNumber("IBAN: PT50000201231234567890154")
		require.NotNil(t, got)
		assert.Contains(t, *got, "PT50")
	})

	t.Run("too few digits", func(t *testing.T) {
		assert.Nil(t, DetectAccountNumber("Account No: **12"))
	})

	t.Run("no account", func(t *testing.T) {
		assert.Nil(t, DetectAccountNumber("Opening balance 1,200.00"))
	})
}
