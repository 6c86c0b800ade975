// Package testutil holds fluent builders for sessions and events used by the
// package tests.
package testutil
