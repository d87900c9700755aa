//go:build !unix && !windows

package watch

func isFatal(error) bool { return false }
