package orgs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeOrgCode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"ACME", "ACME"},
		{" AB12 ", "AB12"},
		{"ADMN", "ADMN"},
	} {
		got, err := NormalizeOrgCode(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}

	for _, bad := range []string{"", "ABC", "ABCDE", "AB-1", "ab c", "ÄBCD"} {
		_, err := NormalizeOrgCode(bad)
		require.ErrorIs(t, err, ErrInvalidCode, bad)
	}
}

func TestNormalizeOrgCodeRejectsLowercase(t *testing.T) {
	for _, bad := range []string{"acme", "adm1", "Acme", "aDMN"} {
		_, err := NormalizeOrgCode(bad)
		require.ErrorIs(t, err, ErrInvalidCode, bad)
	}
}

func TestNormalizeDivisionSuffix(t *testing.T) {
	got, err := NormalizeDivisionSuffix("WH1")
	require.NoError(t, err)
	require.Equal(t, "WH1", got)

	for _, bad := range []string{"", "AB", "ABCD", "A-1", "abc", "wh1", "Wh1"} {
		_, err := NormalizeDivisionSuffix(bad)
		require.ErrorIs(t, err, ErrInvalidCode, bad)
	}
}

func TestDivisionCode(t *testing.T) {
	code, err := DivisionCode("ACME", "WH1")
	require.NoError(t, err)
	require.Equal(t, "ACMEWH1", code)

	_, err = DivisionCode("acme", "WH1")
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = DivisionCode("TOOLONG", "WH1")
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = DivisionCode("ACME", "WHSE")
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestSplitDivisionCode(t *testing.T) {
	org, suffix, err := SplitDivisionCode("ACMEWH1")
	require.NoError(t, err)
	require.Equal(t, "ACME", org)
	require.Equal(t, "WH1", suffix)

	_, _, err = SplitDivisionCode("acmewh1")
	require.ErrorIs(t, err, ErrInvalidCode)
	_, _, err = SplitDivisionCode("ACME")
	require.ErrorIs(t, err, ErrInvalidCode)
}
