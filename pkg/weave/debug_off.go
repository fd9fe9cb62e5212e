//go:build !weavedebug

package weave

const buildDebug = false
