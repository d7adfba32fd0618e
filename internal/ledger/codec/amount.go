package codec

import (
	"math"
	"strconv"
	"strings"
)

// AmountDecimals is the ledger's fixed-point scale: amounts are stored as
// u64 base units with 6 decimal places, the smallest unit of the settlement
// token.
const AmountDecimals = 6

var unitScale = uint64(math.Pow10(AmountDecimals)) // 1_000_000

// ParseAmount converts a decimal string to base units exactly. Fractional
// residue beyond the ledger's precision is rejected, never rounded, and so is
// any magnitude outside the u64 range.
func ParseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, EncodingError{Field: "amount", Reason: "empty"}
	}
	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return 0, EncodingError{Field: "amount", Reason: "malformed decimal"}
		}
	}
	if intPart == "" && fracPart == "" {
		return 0, EncodingError{Field: "amount", Reason: "malformed decimal"}
	}
	if len(fracPart) > AmountDecimals {
		// Trailing zeros beyond the scale are exact; anything else is residue
		if strings.TrimRight(fracPart[AmountDecimals:], "0") != "" {
			return 0, EncodingError{Field: "amount", Reason: "exceeds ledger precision"}
		}
		fracPart = fracPart[:AmountDecimals]
	}
	for len(fracPart) < AmountDecimals {
		fracPart += "0"
	}

	var whole uint64
	if intPart != "" {
		var err error
		whole, err = strconv.ParseUint(intPart, 10, 64)
		if err != nil {
			return 0, EncodingError{Field: "amount", Reason: "exceeds representable range"}
		}
	}
	frac, err := strconv.ParseUint(fracPart, 10, 64)
	if err != nil {
		return 0, EncodingError{Field: "amount", Reason: "malformed decimal"}
	}

	if whole > (math.MaxUint64-frac)/unitScale {
		return 0, EncodingError{Field: "amount", Reason: "exceeds representable range"}
	}
	return whole*unitScale + frac, nil
}

// FormatAmount renders base units back as a decimal string, trimming
// trailing fractional zeros. It is the exact inverse of ParseAmount up to
// decimal normalization.
func FormatAmount(units uint64) string {
	whole := units / unitScale
	frac := units % unitScale
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fracStr := strconv.FormatUint(frac, 10)
	for len(fracStr) < AmountDecimals {
		fracStr = "0" + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return strconv.FormatUint(whole, 10) + "." + fracStr
}
