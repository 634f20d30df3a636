package decimal

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Boundaries(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{in: "", wantErr: ErrEmpty},
		{in: ".", wantErr: ErrInvalidChar},
		{in: "1.", want: 100000000},
		{in: "1.000000005", want: 100000001},
		{in: "1.000000004", want: 100000000},
		{in: "0", want: 0},
		{in: "50000.12345678", want: 5000012345678},
		{in: "50000.87654321", want: 5000087654321},
		{in: "1.2.3", wantErr: ErrMultipleDot},
		{in: "1x2", wantErr: ErrInvalidChar},
		{in: "-1", wantErr: ErrInvalidChar},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	const limit = int64(uint64(1) << 63 / Scale)
	samples := []int64{0, 1, 42, 1000, 123456789, limit - 1}
	for _, n := range samples {
		s := strconv.FormatInt(n, 10)
		got, err := Parse(s)
		require.NoError(t, err)
		require.Equal(t, n*Scale, got)
	}
}

func TestParse_Overflow(t *testing.T) {
	_, err := Parse("99999999999999999999999999")
	require.ErrorIs(t, err, ErrOverflow)
}

func TestParse_NinthDigitIgnoresFurtherDigits(t *testing.T) {
	got, err := Parse("1.0000000059999")
	require.NoError(t, err)
	require.Equal(t, int64(100000001), got)
}
