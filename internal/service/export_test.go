package service

// ScopeGuard exposes the refresh guard to service_test.
type ScopeGuard = scopeGuard
