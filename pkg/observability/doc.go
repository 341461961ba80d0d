/*
Package observability turns endpoint and backend traffic into Prometheus
metrics.

Client side, Metrics.Hooks plugs into endpoint.WithHooks and records every
round trip by request name and outcome. Server side, Metrics.Instrument wraps
a ports.RequestHandler so the mock backend reports what it served.
*/
package observability
