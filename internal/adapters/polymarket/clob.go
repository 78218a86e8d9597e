package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const pricePath = "/price"

// Price devuelve el precio de compra actual del token en escala 0.0–1.0.
// Un book vacío devuelve precio 0, que el caller trata como sin liquidez.
func (c *Client) Price(ctx context.Context, tokenID string) (float64, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	q.Set("side", "buy")

	var resp priceResponse
	u := c.clobBase + pricePath + "?" + q.Encode()
	if err := c.get(ctx, c.priceLimiter, u, &resp); err != nil {
		return 0, fmt.Errorf("clob.Price: token %s: %w", tokenID, err)
	}

	if resp.Price == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("clob.Price: parse %q: %w", resp.Price, err)
	}
	return price, nil
}
