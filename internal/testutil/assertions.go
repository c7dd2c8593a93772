// Package testutil provides an in-process fake engine and guest for tests,
// plus assertions for runtime values.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gal-dev/galrt/domain/entities"
)

// AssertValue asserts that two values have the same kind and content.
// Values hold big.Int pointers, so assert.Equal is not reliable for them.
func AssertValue(t *testing.T, expected, actual entities.Value, msgAndArgs ...interface{}) bool {
	t.Helper()
	if expected.Equal(actual) {
		return true
	}
	return assert.Fail(t, "values differ: expected "+expected.String()+", actual "+actual.String(), msgAndArgs...)
}

// AssertValues asserts that two value slices are element-wise equal.
func AssertValues(t *testing.T, expected, actual []entities.Value, msgAndArgs ...interface{}) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	ok := true
	for i := range expected {
		ok = AssertValue(t, expected[i], actual[i], msgAndArgs...) && ok
	}
	return ok
}

// AssertNoLeaks asserts that the guest holds no live buffers or futures.
func AssertNoLeaks(t *testing.T, g *Guest) bool {
	t.Helper()
	ok := assert.Zero(t, g.LiveAllocations(), "live guest allocations")
	return assert.Zero(t, g.LiveFutures(), "live guest futures") && ok
}
