/*
Package ports defines the boundary interfaces of the Conveyor engine.

Collaborators (dependency installer, static checker, packager, uploader,
release decider, credential resolver) and infrastructure (run store) are
reached exclusively through these interfaces, so the orchestration core
stays independent of concrete tools. Adapters live under pkg/adapters.
*/
package ports
