// Package protocol defines the JSON messages exchanged with the data feed.
//
// Every frame is a JSON object with a string "type" discriminator. Inbound
// frames decode into one of the Inbound variants; a frame whose shape does
// not match its declared variant is a *ProtocolError. Frames with an
// unrecognized discriminator decode into Unknown without error so callers
// can report them separately.
//
// Inbound:
//
//	{"type":"metrics","connections":1,"totalOrders":10,"totalTrades":4,"avgLatency":85.5}
//	{"type":"market_data","symbol":"AAPL","bid":149.9,"ask":150.1,"last":150,"volume":1200,"timestamp":1705320000000}
//	{"type":"connection","status":"connected","message":"Connected to Market Data Feed"}
//
// Outbound:
//
//	{"type":"subscribe","symbol":"AAPL"}
//	{"type":"get_metrics","timestamp":1705320000000}
//	{"type":"heartbeat","timestamp":1705320000000}
//	{"type":"chat","message":"hello"}
//	{"type":"ping"}
//
// Timestamps on the wire are milliseconds since the Unix epoch.
package protocol
