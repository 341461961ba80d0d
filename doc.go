/*
Package graff is a client SDK for factor-graph SLAM backends.

A robot describes its trajectory and observations as a factor graph: variables
(poses, landmarks) joined by factors that carry probabilistic measurements.
The SDK encodes those elements, ships them to a remote solver over a
request/reply channel, and keeps a local mirror of what the solver confirmed.
The solver owns every estimate; the mirror never holds one.

# Concept

Every call is one request envelope and one reply:

	{"request": "addFactor", "payload": {...}}  ->  {"status": "OK"}

Only an exact "OK" status counts as success. The mirror is updated after a
confirmed reply and never otherwise, so a rejected or dropped request leaves
it untouched and the caller gets a typed error.

# Transports

The backend address picks the transport:

  - tcp://, ipc://, inproc:// speak ZeroMQ REQ/REP.
  - http://, https:// POST envelopes to /v1/request.
  - mem:// serves an in-process backend, a mock solver by default.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/graff"
		"github.com/aretw0/graff/pkg/domain"
	)

	func main() {
		ctx := context.Background()
		client, err := graff.Dial("tcp://127.0.0.1:5555",
			graff.WithRobot("krakenoid", ""),
			graff.WithSession("first dive"),
		)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()

		if err := client.Register(ctx); err != nil {
			log.Fatal(err)
		}

		x0, _ := domain.NewVariable("x0", "Pose2")
		if _, err := client.AddVariable(ctx, x0); err != nil {
			log.Fatal(err)
		}
	}

Lower-level building blocks live in pkg/: domain types, the codec, the
endpoint, the per-operation functions in pkg/session and the adapters.
*/
package graff
