//go:build tenantdebug

package gateway

const debugBuild = true
