//go:build !chessdebug

package board

const debugAsserts = false
