package orgs

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	orgCodePattern        = regexp.MustCompile(`^[A-Z0-9]{4}$`)
	divisionSuffixPattern = regexp.MustCompile(`^[A-Z0-9]{3}$`)
)

// NormalizeOrgCode trims a candidate organization code and validates it
// against the 4 character uppercase alphanumeric format. Lowercase input is
// rejected, not folded.
func NormalizeOrgCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !orgCodePattern.MatchString(code) {
		return "", fmt.Errorf("%w: organization code %q must be 4 uppercase alphanumeric characters", ErrInvalidCode, code)
	}
	return code, nil
}

// NormalizeDivisionSuffix validates the 3 character uppercase alphanumeric
// suffix that follows the organization code in a division code. Lowercase
// input is rejected.
func NormalizeDivisionSuffix(suffix string) (string, error) {
	suffix = strings.TrimSpace(suffix)
	if !divisionSuffixPattern.MatchString(suffix) {
		return "", fmt.Errorf("%w: division suffix %q must be 3 uppercase alphanumeric characters", ErrInvalidCode, suffix)
	}
	return suffix, nil
}

// DivisionCode builds the full division code from an organization code and a
// validated suffix.
func DivisionCode(orgCode, suffix string) (string, error) {
	orgCode, err := NormalizeOrgCode(orgCode)
	if err != nil {
		return "", err
	}
	suffix, err = NormalizeDivisionSuffix(suffix)
	if err != nil {
		return "", err
	}
	return orgCode + suffix, nil
}

// SplitDivisionCode separates a full division code into its organization code
// and suffix, validating both parts.
func SplitDivisionCode(code string) (orgCode, suffix string, err error) {
	code = strings.TrimSpace(code)
	if len(code) != 7 {
		return "", "", fmt.Errorf("%w: division code %q must be 7 characters", ErrInvalidCode, code)
	}
	orgCode, err = NormalizeOrgCode(code[:4])
	if err != nil {
		return "", "", err
	}
	suffix, err = NormalizeDivisionSuffix(code[4:])
	if err != nil {
		return "", "", err
	}
	return orgCode, suffix, nil
}
