//go:build !debug

package contract

const strictAssertions = false
