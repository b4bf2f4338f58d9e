// Package constants holds small fixed values shared across Omni's
// packages: the CLI name, environment variable names and default
// filesystem layout, so no two packages spell them differently.
package constants

// CLIName is the prefix used in user-facing output and error messages.
const CLIName = "omni"

// Environment variables consumed by Omni (§6).
const (
	EnvOmniGit         = "OMNI_GIT"
	EnvOmniOrg         = "OMNI_ORG"
	EnvOmniConfig      = "OMNI_CONFIG"
	EnvOmniPath        = "OMNIPATH"
	EnvOmniSkipUpdate  = "OMNI_SKIP_UPDATE"
	EnvOmniForceUpdate = "OMNI_FORCE_UPDATE"
	EnvOmniCmdFile     = "OMNI_CMD_FILE"
	EnvOmniDataHome    = "OMNI_DATA_HOME"
	EnvOmniCacheHome   = "OMNI_CACHE_HOME"
	EnvOmniEnv         = "OMNI_ENV"
	// EnvOmniLoadedSnapshot names the snapshot id the calling shell
	// currently has applied (§4.5's shell hook protocol step 1).
	EnvOmniLoadedSnapshot = "OMNI_LOADED_SNAPSHOT"
	EnvXDGConfigHome   = "XDG_CONFIG_HOME"
	EnvXDGDataHome     = "XDG_DATA_HOME"
	EnvNoColor         = "NO_COLOR"
)

// Environment variables Omni emits into the invoked command's process (§6).
const (
	EnvOutSubcommand = "OMNI_SUBCOMMAND"
	EnvOutRunFrom    = "OMNI_RUN_FROM"
	EnvOutUUID       = "OMNI_UUID"
)

// Default TTLs and intervals (§3, §4.4, §4.7).
const (
	DefaultVersionListingTTLHours = 24
	DefaultUpdateIntervalHours    = 12
	DefaultLsRemoteTimeoutSeconds = 5
)

// Default worktree-relative path template (§3).
const DefaultRepoPathFormat = "%{host}/%{org}/%{repo}"
