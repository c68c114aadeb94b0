package trader

import (
	"github.com/shopspring/decimal"

	"github.com/skalibog/ocobot/pkg/models"
)

// quantityPrecision число знаков количества базового актива
const quantityPrecision = 8

// NormalizeQuantity приводит количество к ограничениям LOT_SIZE:
// округляет вниз до кратного stepSize (никогда вверх, чтобы не
// превысить доступный остаток), ниже minQty возвращает ноль —
// сигнал вызывающему не отправлять заведомо отклоняемый ордер,
// выше maxQty — ограничивает сверху.
func NormalizeQuantity(f models.LotSizeFilter, amount decimal.Decimal) decimal.Decimal {
	if f.StepSize.Sign() <= 0 {
		return decimal.Zero
	}
	adjusted := amount.Div(f.StepSize).Floor().Mul(f.StepSize)
	if adjusted.LessThan(f.MinQty) {
		return decimal.Zero
	}
	if adjusted.GreaterThan(f.MaxQty) {
		adjusted = f.MaxQty
	}
	return adjusted.Truncate(quantityPrecision)
}

// FormatQuantity форматирует количество для API биржи
func FormatQuantity(q decimal.Decimal) string {
	return q.StringFixed(quantityPrecision)
}
