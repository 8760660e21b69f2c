// Package api exposes the dashboard over HTTP and provides a client for it.
//
// Server routes (JSON unless noted):
//
//	GET    /health
//	GET    /status
//	GET    /symbols                  POST /symbols {"symbol":"NVDA"}
//	GET    /symbols/{symbol}         DELETE /symbols/{symbol}
//	PUT    /selected {"symbol":"AAPL"}
//	PUT    /timeframe {"timeframe":"5s"}
//	GET    /chart?timeframe=30s
//	GET    /stats?symbol=AAPL
//	GET    /trades                   DELETE /trades
//	GET    /server-metrics           POST /server-metrics
//	GET    /messages
//	POST   /connection/{connect|disconnect|reconnect}
//	POST   /submit {"text":"/stats"}
//	GET    /metrics                  Prometheus exposition format
//
// Policy violations map to 409, unknown symbols to 404 and malformed
// input to 400.
package api
