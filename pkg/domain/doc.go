/*
Package domain contains the data model of a factor graph as the SDK sees it.

It defines the entities a client builds locally before submitting them to a
remote solver, and the error taxonomy shared by every other package. Nothing in
here performs I/O: encoding to the wire, transports and persistence live in
their own packages.

# Key Entities

  - Distribution: the probability law of one measurement axis (Normal, MvNormal, SampleWeights).
  - Variable: an unknown to be estimated (pose, landmark), identified by name.
  - Factor: a measurement connecting one or more variables, owning its distributions.
  - Robot: the identity that scopes registration calls.
  - Session: the local mirror of the elements the backend has confirmed.

Distributions and elements are immutable once built. Constructors validate
their invariants and return an *InvariantError before anything reaches the network.
*/
package domain
