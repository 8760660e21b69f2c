// Package dashboard is the client facade.
//
// A Client owns every piece of client state: the symbol store, the ingest
// pipeline, the connection manager, the system message log and the chart
// timeframe. All of it is confined to the event loop. Exported methods
// are safe for concurrent use because they hop onto the loop with
// sched.Runner.Call and wait for the result.
//
// User actions mirror the dashboard controls: connect and disconnect,
// symbol selection and management, timeframe changes, chat and slash
// commands. Each action reports its outcome to the notification log.
package dashboard
