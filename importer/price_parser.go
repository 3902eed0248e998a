package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// PricePrecision число знаков после запятой при хранении цен
const PricePrecision = 4

// Price разобранная цена
type Price struct {
	Amount   decimal.Decimal
	Currency string
	// Explicit валюта указана в ячейке явно
	Explicit bool
}

var currencySymbols = []struct {
	symbol string
	code   string
}{
	// многосимвольные обозначения раньше односимвольных
	{"US$", "USD"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

var (
	isoPrefix = regexp.MustCompile(`^([A-Za-z]{3})\s*([-+(]?[\d.,'\s]+\)?)$`)
	isoSuffix = regexp.MustCompile(`^([-+(]?[\d.,'\s]+\)?)\s*([A-Za-z]{3})$`)
	numeric   = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ParsePrice разбирает цену с символом или ISO-кодом валюты в префиксе или суффиксе.
// Без индикатора валюта равна defaultCurrency.
func ParsePrice(raw, defaultCurrency string) (*Price, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if s == "" {
		return nil, nil
	}

	price := &Price{Currency: strings.ToUpper(defaultCurrency)}

	for _, cs := range currencySymbols {
		if strings.Contains(s, cs.symbol) {
			s = strings.TrimSpace(strings.Replace(s, cs.symbol, "", 1))
			price.Currency = cs.code
			price.Explicit = true
			break
		}
	}

	if !price.Explicit {
		if m := isoPrefix.FindStringSubmatch(s); m != nil {
			price.Currency = strings.ToUpper(m[1])
			price.Explicit = true
			s = m[2]
		} else if m := isoSuffix.FindStringSubmatch(s); m != nil {
			price.Currency = strings.ToUpper(m[2])
			price.Explicit = true
			s = m[1]
		}
	}

	amount, err := ParseDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	price.Amount = amount
	return price, nil
}

// ParseDecimal разбирает число с учетом разделителей тысяч и дробной части:
// при наличии и запятой и точки десятичным считается последний знак;
// одиночная запятая перед ровно тремя цифрами разделяет тысячи, иначе это дробная часть;
// несколько запятых или несколько точек разделяют тысячи.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\'' || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, s)

	s = normalizeSeparators(s)
	if !numeric.MatchString(s) {
		return decimal.Zero, fmt.Errorf("not a number")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators приводит число к виду с точкой в качестве десятичного разделителя
func normalizeSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		tail := s[strings.Index(s, ",")+1:]
		if len(tail) == 3 {
			return strings.Replace(s, ",", "", 1)
		}
		return strings.Replace(s, ",", ".", 1)
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// ConvertPrice переводит сумму в базовую валюту по курсу и округляет до точности хранения
func ConvertPrice(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(PricePrecision)
}
