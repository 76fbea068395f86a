// Package testutil provides test doubles shared across packages: an
// in-process sync service and a mock progress notifier.
package testutil
