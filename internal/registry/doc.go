// Package registry maps node-kind names to factories that build ready
// flow nodes with their ports and calculation steps. The HCL loader
// instantiates nodes through a registry; embedders register their own
// kinds next to the builtins.
package registry
