package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func shares(ids ...string) []Share {
	out := make([]Share, len(ids))
	for i, id := range ids {
		out[i] = Share{UserID: id}
	}
	return out
}

func amounts(splits []Split) map[string]string {
	out := make(map[string]string, len(splits))
	for _, s := range splits {
		out[s.UserID] = s.Amount.StringFixed(2)
	}
	return out
}

func TestComputeSplits(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		splitType SplitType
		shares    []Share
		want      map[string]string
		wantErr   error
	}{
		{
			name:      "equal split divides evenly",
			amount:    "90.00",
			splitType: SplitEqual,
			shares:    shares("alice", "bob", "carol"),
			want:      map[string]string{"alice": "30.00", "bob": "30.00", "carol": "30.00"},
		},
		{
			name:      "equal split gives leftover cents to first participants",
			amount:    "100.00",
			splitType: SplitEqual,
			shares:    shares("alice", "bob", "carol"),
			want:      map[string]string{"alice": "33.34", "bob": "33.33", "carol": "33.33"},
		},
		{
			name:      "equal split with two leftover cents",
			amount:    "0.05",
			splitType: SplitEqual,
			shares:    shares("alice", "bob", "carol"),
			want:      map[string]string{"alice": "0.02", "bob": "0.02", "carol": "0.01"},
		},
		{
			name:      "empty split type means equal",
			amount:    "10",
			splitType: "",
			shares:    shares("alice", "bob"),
			want:      map[string]string{"alice": "5.00", "bob": "5.00"},
		},
		{
			name:      "exact split that adds up",
			amount:    "50.00",
			splitType: SplitExact,
			shares:    []Share{{"alice", d("20")}, {"bob", d("30")}},
			want:      map[string]string{"alice": "20.00", "bob": "30.00"},
		},
		{
			name:      "exact split that does not add up",
			amount:    "50.00",
			splitType: SplitExact,
			shares:    []Share{{"alice", d("20")}, {"bob", d("29.99")}},
			wantErr:   ErrSplitMismatch,
		},
		{
			name:      "exact split rounds sub-cent values",
			amount:    "10.00",
			splitType: SplitExact,
			shares:    []Share{{"alice", d("3.333")}, {"bob", d("6.667")}},
			want:      map[string]string{"alice": "3.33", "bob": "6.67"},
		},
		{
			name:      "exact split that only adds up before rounding",
			amount:    "10.00",
			splitType: SplitExact,
			shares:    []Share{{"alice", d("3.335")}, {"bob", d("6.665")}},
			wantErr:   ErrSplitMismatch,
		},
		{
			name:      "equal split beyond int64 cents",
			amount:    "100000000000000000000",
			splitType: SplitEqual,
			shares:    shares("alice", "bob", "carol"),
			want: map[string]string{
				"alice": "33333333333333333333.34",
				"bob":   "33333333333333333333.33",
				"carol": "33333333333333333333.33",
			},
		},
		{
			name:      "shares split beyond int64 cents",
			amount:    "92233720368547758.08",
			splitType: SplitShares,
			shares:    []Share{{"alice", d("1")}, {"bob", d("1")}},
			want:      map[string]string{"alice": "46116860184273879.04", "bob": "46116860184273879.04"},
		},
		{
			name:      "exact split with negative amount",
			amount:    "10.00",
			splitType: SplitExact,
			shares:    []Share{{"alice", d("20")}, {"bob", d("-10")}},
			wantErr:   ErrNegativeShare,
		},
		{
			name:      "percent split uses largest remainder",
			amount:    "10.00",
			splitType: SplitPercent,
			shares:    []Share{{"alice", d("33.33")}, {"bob", d("33.33")}, {"carol", d("33.34")}},
			want:      map[string]string{"alice": "3.33", "bob": "3.33", "carol": "3.34"},
		},
		{
			name:      "percent split must total 100",
			amount:    "10.00",
			splitType: SplitPercent,
			shares:    []Share{{"alice", d("50")}, {"bob", d("40")}},
			wantErr:   ErrPercentTotal,
		},
		{
			name:      "shares split by weight",
			amount:    "100.00",
			splitType: SplitShares,
			shares:    []Share{{"alice", d("2")}, {"bob", d("1")}},
			want:      map[string]string{"alice": "66.67", "bob": "33.33"},
		},
		{
			name:      "shares allow a zero weight participant",
			amount:    "9.00",
			splitType: SplitShares,
			shares:    []Share{{"alice", d("1")}, {"bob", d("0")}},
			want:      map[string]string{"alice": "9.00", "bob": "0.00"},
		},
		{
			name:      "all zero shares",
			amount:    "9.00",
			splitType: SplitShares,
			shares:    []Share{{"alice", d("0")}, {"bob", d("0")}},
			wantErr:   ErrZeroShares,
		},
		{
			name:      "zero amount",
			amount:    "0",
			splitType: SplitEqual,
			shares:    shares("alice"),
			wantErr:   ErrInvalidAmount,
		},
		{
			name:      "negative amount",
			amount:    "-5",
			splitType: SplitEqual,
			shares:    shares("alice"),
			wantErr:   ErrInvalidAmount,
		},
		{
			name:      "fractional cents",
			amount:    "1.005",
			splitType: SplitEqual,
			shares:    shares("alice"),
			wantErr:   ErrAmountPrecision,
		},
		{
			name:      "no participants",
			amount:    "10",
			splitType: SplitEqual,
			wantErr:   ErrNoParticipants,
		},
		{
			name:      "duplicate participant",
			amount:    "10",
			splitType: SplitEqual,
			shares:    shares("alice", "alice"),
			wantErr:   ErrDuplicateParticipant,
		},
		{
			name:      "unknown split type",
			amount:    "10",
			splitType: "thirds",
			shares:    shares("alice"),
			wantErr:   ErrUnknownSplitType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := ComputeSplits(d(tt.amount), tt.splitType, tt.shares)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, amounts(splits))
			assert.True(t, Total(splits).Equal(d(tt.amount)), "splits must add up to the amount")
		})
	}
}

func TestComputeSplits_PreservesInputOrder(t *testing.T) {
	splits, err := ComputeSplits(d("10"), SplitEqual, shares("carol", "alice", "bob"))
	require.NoError(t, err)
	require.Len(t, splits, 3)
	assert.Equal(t, "carol", splits[0].UserID)
	assert.Equal(t, "alice", splits[1].UserID)
	assert.Equal(t, "bob", splits[2].UserID)
	assert.Equal(t, "3.34", splits[0].Amount.StringFixed(2))
}

func TestComputeSplits_AlwaysSumsToAmount(t *testing.T) {
	for cents := int64(1); cents <= 500; cents++ {
		amount := decimal.New(cents, -2)
		for n := 1; n <= 7; n++ {
			ids := make([]string, n)
			for i := range ids {
				ids[i] = string(rune('a' + i))
			}
			splits, err := ComputeSplits(amount, SplitEqual, shares(ids...))
			require.NoError(t, err)
			require.True(t, Total(splits).Equal(amount), "amount %s across %d", amount, n)
		}
	}
}

func TestValidateSplits(t *testing.T) {
	assert.NoError(t, ValidateSplits(d("10"), []Split{{"a", d("4")}, {"b", d("6")}}))
	assert.ErrorIs(t, ValidateSplits(d("10"), nil), ErrNoParticipants)
	assert.ErrorIs(t, ValidateSplits(d("10"), []Split{{"", d("10")}}), ErrMissingParticipant)
	assert.ErrorIs(t, ValidateSplits(d("10"), []Split{{"a", d("5")}, {"a", d("5")}}), ErrDuplicateParticipant)
	assert.ErrorIs(t, ValidateSplits(d("10"), []Split{{"a", d("10.001")}}), ErrAmountPrecision)
	assert.ErrorIs(t, ValidateSplits(d("10"), []Split{{"a", d("9.99")}}), ErrSplitMismatch)
}

func TestParseSplitType(t *testing.T) {
	for _, s := range []string{"", "equal", "exact", "percent", "shares"} {
		_, err := ParseSplitType(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseSplitType("custom")
	assert.ErrorIs(t, err, ErrUnknownSplitType)
}
