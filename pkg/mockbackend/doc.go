/*
Package mockbackend is an in-process stand-in for a factor-graph solver.

It speaks the full request protocol, keeps robots, sessions and graphs in
memory, enforces the referential checks a real backend would (unknown
variables, duplicate labels, unregistered robots) and produces deterministic
estimates by dead reckoning over priors and relative Gaussian factors. It is
not a solver: estimates exist so that clients have something to query.

In mock mode (toggleMockServer true) graph checks are skipped and queries
answer with zero estimates without a prior solve.
*/
package mockbackend
