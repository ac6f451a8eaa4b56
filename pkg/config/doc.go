/*
Package config loads and validates the declared pipeline: trunk branch,
matrix axes, stages, the collaborator command registry and the per-OS
upload table.

Validation happens entirely before execution. The notable check is upload
totality: every declared operating-system value must map to exactly one
upload command/credential pair, so an unmapped platform is rejected up
front instead of silently skipped mid-run.
*/
package config
