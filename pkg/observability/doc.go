/*
Package observability wires pipeline run hooks into Prometheus collectors:
context terminal states, stage durations, release decisions and the last
run's overall outcome.
*/
package observability
