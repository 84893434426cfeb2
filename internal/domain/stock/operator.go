package stock

import (
	"slices"
	"strings"
)

// Operator is a tracked telecom company.
type Operator struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Symbol      string `json:"symbol"`
	Active      bool   `json:"active"`
}

// registry is ordered the way operators are displayed.
// SFR has no usable upstream data and Free has been delisted since 2021.
var registry = []Operator{
	{Key: "orange", DisplayName: "Orange", Symbol: "ORA.PA", Active: true},
	{Key: "bouygues", DisplayName: "Bouygues", Symbol: "EN.PA", Active: true},
	{Key: "sfr", DisplayName: "SFR", Symbol: "ATC.PA", Active: false},
	{Key: "free", DisplayName: "Free", Symbol: "ILD.PA", Active: false},
}

// Operators returns the full registry, inactive entries included.
func Operators() []Operator {
	out := make([]Operator, len(registry))
	copy(out, registry)
	return out
}

// ActiveOperators returns the operators that are fetched from upstream.
func ActiveOperators() []Operator {
	out := make([]Operator, 0, len(registry))
	for _, op := range registry {
		if op.Active {
			out = append(out, op)
		}
	}
	return out
}

// OperatorBySymbol looks up an operator by ticker symbol.
func OperatorBySymbol(symbol string) (Operator, bool) {
	for _, op := range registry {
		if op.Symbol == symbol {
			return op, true
		}
	}
	return Operator{}, false
}

// OperatorByKey looks up an operator by its registry key.
func OperatorByKey(key string) (Operator, bool) {
	for _, op := range registry {
		if op.Key == key {
			return op, true
		}
	}
	return Operator{}, false
}

// IsActiveSymbol reports whether symbol belongs to an active operator.
func IsActiveSymbol(symbol string) bool {
	op, ok := OperatorBySymbol(symbol)
	return ok && op.Active
}

// SortByRegistry orders stocks the way operators are displayed. Symbols
// missing from the registry go last, alphabetically.
func SortByRegistry(stocks []Stock) {
	rank := make(map[string]int, len(registry))
	for i, op := range registry {
		rank[op.Symbol] = i
	}
	slices.SortStableFunc(stocks, func(a, b Stock) int {
		ra, okA := rank[a.Symbol]
		rb, okB := rank[b.Symbol]
		switch {
		case okA && okB:
			return ra - rb
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(a.Symbol, b.Symbol)
	})
}
