package tools

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/toolrelay/toolrelay/internal/expr"
)

type CalculateArgs struct {
	Expression string `json:"expression" jsonschema_description:"Mathematical expression to evaluate, e.g. \"2 + 2\", \"sqrt(16)\", \"(3.5 * 4) / 2\""`
}

type Calculation struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
	Formatted  string  `json:"formatted"`
}

var numberPrinter = message.NewPrinter(language.English)

// CalculateTool evaluates whitelisted arithmetic with the expr parser.
func CalculateTool() Tool {
	return Tool{
		Name:        "calculate",
		Description: "Perform mathematical calculations. Supports basic arithmetic (+, -, *, /), parentheses and sqrt().",
		Parameters:  GenerateSchema[CalculateArgs](),
		Execute: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
			args, err := decodeArgs[CalculateArgs](input)
			if err != nil {
				return nil, err
			}
			return Calculate(args.Expression)
		},
	}
}

// Calculate sanitises and evaluates an expression.
func Calculate(expression string) (*Calculation, error) {
	v, err := expr.Eval(expr.Sanitize(expression))
	if err != nil {
		return nil, fmt.Errorf("Calculation failed: %v", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.New("Invalid calculation result")
	}
	return &Calculation{
		Expression: expression,
		Result:     v,
		Formatted:  numberPrinter.Sprint(number.Decimal(v, number.MaxFractionDigits(3))),
	}, nil
}
