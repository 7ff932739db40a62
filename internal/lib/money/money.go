package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Денежные суммы хранятся в БД как строки с двумя знаками после запятой
// и во всей бизнес-логике представлены decimal.Decimal, чтобы исключить
// накопление ошибок плавающей точки при суммировании.

// Parse разбирает денежную строку ("49.98") в decimal.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// String форматирует сумму с двумя знаками после запятой для хранения и вывода.
func String(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Sum складывает суммы без потери точности.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
