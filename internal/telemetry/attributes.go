package telemetry

// Structured-log attribute keys shared across Core components, kept in
// one place so a `grep` across logs finds every emitter of a given field.
const (
	AttrScriptID       = "gasmcp.script_id"
	AttrToolName       = "gasmcp.tool.name"
	AttrToolDurationMs = "gasmcp.tool.duration_ms"

	AttrLockHolder    = "gasmcp.lock.holder_pid"
	AttrLockTool      = "gasmcp.lock.tool"
	AttrLockAge       = "gasmcp.lock.age_ms"

	AttrGitBranch = "gasmcp.git.branch"
	AttrGitCommit = "gasmcp.git.commit"

	AttrDeployEnvironment = "gasmcp.deploy.environment"
	AttrDeployVersion     = "gasmcp.deploy.version"

	AttrRsyncDirection = "gasmcp.rsync.direction"
	AttrRsyncDryRun    = "gasmcp.rsync.dryrun"
)
