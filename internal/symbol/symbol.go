package symbol

import (
	"fmt"
	"regexp"
	"strings"
)

// Tickers like "SPY", "BRK.B", "^GSPC", "ES=F".
var tickerRe = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,15}$`)

// Normalize trims and upper-cases sym: " spy " => "SPY".
func Normalize(sym string) (string, error) {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	if sym == "" {
		return "", fmt.Errorf("empty symbol")
	}
	if !tickerRe.MatchString(sym) {
		return "", fmt.Errorf("invalid symbol: %q", sym)
	}
	return sym, nil
}

// NormalizeList normalizes every entry and drops duplicates, keeping order.
func NormalizeList(symbols []string) ([]string, error) {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		n, err := Normalize(s)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// SplitList parses a comma-separated list: "spy, dia,QQQ".
func SplitList(s string) ([]string, error) {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return NormalizeList(parts)
}
