package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rickgao/marketdash/internal/dashboard"
	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/stats"
)

// Health checks that the server is up and reports its build.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.get(ctx, "/health", nil, &out)
	return out, err
}

// Status returns the client status.
func (c *Client) Status(ctx context.Context) (dashboard.Status, error) {
	var out dashboard.Status
	err := c.get(ctx, "/status", nil, &out)
	return out, err
}

// Symbols lists every tracked symbol.
func (c *Client) Symbols(ctx context.Context) ([]SymbolView, error) {
	var out []SymbolView
	err := c.get(ctx, "/symbols", nil, &out)
	return out, err
}

// Symbol returns one symbol.
func (c *Client) Symbol(ctx context.Context, symbol string) (SymbolView, error) {
	var out SymbolView
	err := c.get(ctx, "/symbols/"+url.PathEscape(symbol), nil, &out)
	return out, err
}

// AddSymbol starts tracking symbol.
func (c *Client) AddSymbol(ctx context.Context, symbol string) (SymbolView, error) {
	var out SymbolView
	err := c.send(ctx, http.MethodPost, "/symbols", symbolRequest{Symbol: symbol}, &out)
	return out, err
}

// RemoveSymbol stops tracking symbol.
func (c *Client) RemoveSymbol(ctx context.Context, symbol string) error {
	return c.send(ctx, http.MethodDelete, "/symbols/"+url.PathEscape(symbol), nil, nil)
}

// Select changes the selected symbol.
func (c *Client) Select(ctx context.Context, symbol string) error {
	return c.send(ctx, http.MethodPut, "/selected", symbolRequest{Symbol: symbol}, nil)
}

// SetTimeframe changes the chart timeframe.
func (c *Client) SetTimeframe(ctx context.Context, tag string) error {
	return c.send(ctx, http.MethodPut, "/timeframe", timeframeRequest{Timeframe: tag}, nil)
}

// Chart returns the selected symbol's chart. An empty tag uses the
// current timeframe.
func (c *Client) Chart(ctx context.Context, tag string) (dashboard.ChartView, error) {
	var query url.Values
	if tag != "" {
		query = url.Values{"timeframe": {tag}}
	}
	var out dashboard.ChartView
	err := c.get(ctx, "/chart", query, &out)
	return out, err
}

// Stats returns statistics for symbol, or for the selected symbol when
// symbol is empty.
func (c *Client) Stats(ctx context.Context, symbol string) (stats.Summary, error) {
	var query url.Values
	if symbol != "" {
		query = url.Values{"symbol": {symbol}}
	}
	var out stats.Summary
	err := c.get(ctx, "/stats", query, &out)
	return out, err
}

// Trades returns the trade log, newest first.
func (c *Client) Trades(ctx context.Context) ([]model.TradeLogEntry, error) {
	var out []model.TradeLogEntry
	err := c.get(ctx, "/trades", nil, &out)
	return out, err
}

// ClearTrades empties the trade log.
func (c *Client) ClearTrades(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/trades", nil, nil)
}

// ServerMetrics returns the last server metrics snapshot.
func (c *Client) ServerMetrics(ctx context.Context) (model.MetricsSnapshot, error) {
	var out model.MetricsSnapshot
	err := c.get(ctx, "/server-metrics", nil, &out)
	return out, err
}

// RequestMetrics asks the feed for a fresh snapshot.
func (c *Client) RequestMetrics(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/server-metrics", nil, nil)
}

// Messages returns the system message log.
func (c *Client) Messages(ctx context.Context) ([]model.SystemMessage, error) {
	var out []model.SystemMessage
	err := c.get(ctx, "/messages", nil, &out)
	return out, err
}

// Connection runs a connection action: connect, disconnect or reconnect.
func (c *Client) Connection(ctx context.Context, action string) error {
	return c.send(ctx, http.MethodPost, "/connection/"+url.PathEscape(action), nil, nil)
}

// Submit sends one line of input: a slash command or chat.
func (c *Client) Submit(ctx context.Context, text string) error {
	return c.send(ctx, http.MethodPost, "/submit", submitRequest{Text: text}, nil)
}
