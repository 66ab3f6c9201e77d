package phone

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhoneNumber is returned when the cleaned number cannot be a
// dialable international number.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

const (
	minDigits = 10
	maxDigits = 15
)

// Normalized is the canonical form of a parsed phone number.
type Normalized struct {
	// FullNumber is <countrycode><localnumber>, digits only.
	FullNumber  string
	CountryCode string
	CountryName string
}

// countryCodes maps international calling codes to country names. Codes are
// matched longest-first (3, then 2, then 1 digits).
var countryCodes = map[string]string{
	// one digit
	"1": "United States / Canada",
	"7": "Russia / Kazakhstan",
	// two digits
	"20": "Egypt",
	"27": "South Africa",
	"30": "Greece",
	"31": "Netherlands",
	"32": "Belgium",
	"33": "France",
	"34": "Spain",
	"39": "Italy",
	"40": "Romania",
	"41": "Switzerland",
	"44": "United Kingdom",
	"45": "Denmark",
	"46": "Sweden",
	"47": "Norway",
	"48": "Poland",
	"49": "Germany",
	"51": "Peru",
	"52": "Mexico",
	"54": "Argentina",
	"55": "Brazil",
	"56": "Chile",
	"57": "Colombia",
	"60": "Malaysia",
	"61": "Australia",
	"62": "Indonesia",
	"63": "Philippines",
	"64": "New Zealand",
	"65": "Singapore",
	"66": "Thailand",
	"81": "Japan",
	"82": "South Korea",
	"84": "Vietnam",
	"86": "China",
	"90": "Turkey",
	"91": "India",
	"92": "Pakistan",
	"94": "Sri Lanka",
	"98": "Iran",
	// three digits
	"212": "Morocco",
	"213": "Algeria",
	"216": "Tunisia",
	"220": "Gambia",
	"221": "Senegal",
	"222": "Mauritania",
	"223": "Mali",
	"224": "Guinea",
	"225": "Ivory Coast",
	"226": "Burkina Faso",
	"227": "Niger",
	"228": "Togo",
	"229": "Benin",
	"230": "Mauritius",
	"231": "Liberia",
	"232": "Sierra Leone",
	"233": "Ghana",
	"234": "Nigeria",
	"235": "Chad",
	"236": "Central African Republic",
	"237": "Cameroon",
	"238": "Cape Verde",
	"240": "Equatorial Guinea",
	"241": "Gabon",
	"242": "Republic of the Congo",
	"243": "Democratic Republic of the Congo",
	"244": "Angola",
	"245": "Guinea-Bissau",
	"248": "Seychelles",
	"249": "Sudan",
	"250": "Rwanda",
	"251": "Ethiopia",
	"252": "Somalia",
	"253": "Djibouti",
	"254": "Kenya",
	"255": "Tanzania",
	"256": "Uganda",
	"257": "Burundi",
	"258": "Mozambique",
	"260": "Zambia",
	"261": "Madagascar",
	"262": "Reunion",
	"263": "Zimbabwe",
	"264": "Namibia",
	"265": "Malawi",
	"266": "Lesotho",
	"267": "Botswana",
	"268": "Eswatini",
	"269": "Comoros",
	"351": "Portugal",
	"352": "Luxembourg",
	"353": "Ireland",
	"358": "Finland",
	"380": "Ukraine",
	"420": "Czech Republic",
	"421": "Slovakia",
	"503": "El Salvador",
	"509": "Haiti",
	"593": "Ecuador",
	"598": "Uruguay",
	"852": "Hong Kong",
	"880": "Bangladesh",
	"961": "Lebanon",
	"962": "Jordan",
	"963": "Syria",
	"964": "Iraq",
	"965": "Kuwait",
	"966": "Saudi Arabia",
	"971": "United Arab Emirates",
	"972": "Israel",
	"973": "Bahrain",
	"974": "Qatar",
	"975": "Bhutan",
	"976": "Mongolia",
	"977": "Nepal",
	"994": "Azerbaijan",
	"995": "Georgia",
	"998": "Uzbekistan",
}

// CountryName returns the country name for a calling code, or the empty
// string when the code is unknown.
func CountryName(code string) string {
	return countryCodes[code]
}

// Normalize parses a free-form phone number and produces the canonical
// <countrycode><localnumber> form. The country calling code is detected by
// longest match (3, 2, 1 digits) against the static table; when no code
// matches, fallbackCountryCode is assumed and the whole cleaned input is
// treated as the local number. Leading zeros of the local part are stripped,
// following the common local-dialing convention.
func Normalize(rawPhone, fallbackCountryCode string) (*Normalized, error) {
	cleaned := cleanNumber(rawPhone)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: no digits in %q", ErrInvalidPhoneNumber, rawPhone)
	}

	code, local := detectCountryCode(cleaned)
	if code == "" {
		code = strings.TrimLeft(strings.TrimSpace(fallbackCountryCode), "+")
		local = cleaned
	}

	local = strings.TrimLeft(local, "0")
	if local == "" {
		return nil, fmt.Errorf("%w: empty local number in %q", ErrInvalidPhoneNumber, rawPhone)
	}

	full := code + local
	if len(full) < minDigits || len(full) > maxDigits {
		return nil, fmt.Errorf("%w: %q has %d digits, want %d-%d", ErrInvalidPhoneNumber, full, len(full), minDigits, maxDigits)
	}
	for _, r := range full {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q contains non-digit characters", ErrInvalidPhoneNumber, full)
		}
	}

	return &Normalized{
		FullNumber:  full,
		CountryCode: code,
		CountryName: countryCodes[code],
	}, nil
}

// cleanNumber strips everything except digits and a leading +, then removes
// the + or 00 international dialing markers.
func cleanNumber(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if strings.HasPrefix(s, "+") {
		return s[1:]
	}
	if strings.HasPrefix(s, "00") {
		return s[2:]
	}
	return s
}

// detectCountryCode tries the longest known calling code prefix first.
func detectCountryCode(digits string) (code, local string) {
	for _, size := range []int{3, 2, 1} {
		if len(digits) <= size {
			continue
		}
		prefix := digits[:size]
		if _, ok := countryCodes[prefix]; ok {
			return prefix, digits[size:]
		}
	}
	return "", digits
}
