package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alphaarc/platform/internal/llm"
	"github.com/alphaarc/platform/internal/sdk"
)

// buyTokenSchema is the JSON Schema for the buy_token tool input.
const buyTokenSchema = `{
	"type": "object",
	"properties": {
		"token": {"type": "string", "description": "Token symbol to buy"},
		"amount": {"type": "string", "description": "Notional amount in USD, decimal string"}
	},
	"required": ["token", "amount"]
}`

type buyTokenArgs struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// NewBuyTokenTool returns the paper-trading action. The trade is placed
// through the platform API via the run's data client; amounts are exact
// decimals, never floats.
func NewBuyTokenTool(client *sdk.Client) Tool {
	return Tool{
		Definition: llm.ToolDefinition{
			Name:        "buy_token",
			Description: "Place a paper-trading buy order for a token with a USD notional amount.",
			Parameters:  json.RawMessage(buyTokenSchema),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var a buyTokenArgs
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, fmt.Errorf("buy_token: invalid arguments: %w", err)
			}
			amount, err := decimal.NewFromString(a.Amount)
			if err != nil {
				return nil, fmt.Errorf("buy_token: invalid amount %q: %w", a.Amount, err)
			}
			if amount.IsNegative() || amount.IsZero() {
				return nil, fmt.Errorf("buy_token: amount must be positive")
			}

			res, err := client.Post(ctx, "/trading/buy", map[string]string{
				"token":  a.Token,
				"amount": amount.String(),
			})
			if err != nil {
				return nil, fmt.Errorf("buy_token: %w", err)
			}
			if res.Error != "" {
				return nil, fmt.Errorf("buy_token: %s", res.Error)
			}
			return res.Data, nil
		},
	}
}
