/*
Package session implements the session-mutation operations and the caller-side
coordination around them.

The operations (AddVariable, AddFactor, RequestSolve, the GetVarMAP queries
and the rest) are plain functions over a Requester and a *domain.Session
mirror. A mutation touches the mirror only after the backend replies with
status "OK"; rejections come back as *domain.RejectedError together with the
reply, and transport or decode failures leave the mirror untouched.

Manager adds what the operations deliberately lack: per-session locking
(optionally distributed) and persistence of mirrors to a ports.SnapshotStore.
*/
package session
