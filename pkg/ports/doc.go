/*
Package ports defines the driven ports (interfaces) of the graff SDK.

These interfaces decouple the request/reply core from concrete channels and
storage, so the same operations run against ZeroMQ, HTTP or an in-process
backend, and mirrors can be persisted to memory, files or Redis.

# Key Interfaces

  - Transport: carries one serialized request and blocks for exactly one reply.
  - RequestHandler: the serving side of the protocol (mock backend, servers).
  - SnapshotStore: persists and loads session mirrors.
  - DistributedLocker: serializes access to one session across processes.
*/
package ports
