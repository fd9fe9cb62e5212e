//go:build weavedebug

package weave

const buildDebug = true
