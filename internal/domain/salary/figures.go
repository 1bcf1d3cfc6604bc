package salary

import "github.com/shopspring/decimal"

type FigureInputs struct {
	BasePay     decimal.Decimal
	HourlyRate  decimal.Decimal
	HoursWorked decimal.Decimal
	Allowance   decimal.Decimal
	Bonus       decimal.Decimal
	Deductions  decimal.Decimal
}

type Figures struct {
	FigureInputs
	HourlyPay   decimal.Decimal
	GrossSalary decimal.Decimal
	NetSalary   decimal.Decimal
}

// ComputeFigures derives hourly pay, gross and net. Only the resulting salary
// figures are rounded to 2 places; rate x hours is computed at full precision.
func ComputeFigures(in FigureInputs) Figures {
	hourlyPay := in.HourlyRate.Mul(in.HoursWorked).Round(2)
	gross := in.BasePay.Add(hourlyPay).Add(in.Allowance).Add(in.Bonus).Round(2)
	net := gross.Sub(in.Deductions).Round(2)

	return Figures{
		FigureInputs: in,
		HourlyPay:    hourlyPay,
		GrossSalary:  gross,
		NetSalary:    net,
	}
}

// RoundMoney rounds a monetary input to 2 places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
