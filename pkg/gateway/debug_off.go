//go:build !tenantdebug

package gateway

// debugBuild is false in deployable builds. Unscoped reads require
// building with -tags tenantdebug.
const debugBuild = false
