/*
Package scenario builds and drives complete factor graphs.

A Plan is an ordered list of variables and factors plus the robot and
session they belong to. Dive and Hexagon produce the two reference plans;
Run replays any plan against a backend, keeping a mirror of what was
confirmed.
*/
package scenario
