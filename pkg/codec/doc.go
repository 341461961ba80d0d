/*
Package codec converts the graph model to and from the message-exchange format.

The canonical request envelope is

	{"request": <operation>, "payload": <operation-specific document>}

and a reply is any JSON object carrying a "status" field. A reply is
successful iff status is exactly "OK". The older flat envelope
({"type": ..., <field>: ...}) is recognised only to be rejected with
ErrLegacyEnvelope; the SDK never emits it.

Decoders are tolerant of the shapes JSON and YAML produce (numbers as float64
or int, lists as []any) and of the legacy forms the backend may still echo:
nested covariance rows, and a single measurement document instead of a
sequence. Anything missing or unrecognised fails with a *domain.DecodeError.
*/
package codec
