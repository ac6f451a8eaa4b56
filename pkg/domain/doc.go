/*
Package domain contains the core domain models for the Conveyor pipeline.

It defines the fundamental entities of the orchestration model, such as
Stages, Matrix Axes, Execution Contexts and the per-context state machine.
This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Trigger: The push event (branch + commit) that starts a run.
  - MatrixAxis: A named, ordered set of discrete values (e.g. operating systems).
  - ExecutionContext: One concrete axis-value assignment for a matrixed stage.
  - Stage: A named unit of work with dependencies, an optional guard and an
    optional matrix binding.
  - Outputs: The write-once key/value result a stage exposes to its dependents.
*/
package domain
