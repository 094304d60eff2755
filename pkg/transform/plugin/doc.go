// Package plugin holds the plugin registry consulted by expressions through
// "$1." references, and the Loader contract used to resolve import-path
// plugin descriptors into capabilities.
//
// The core never loads code itself. Hosts inject a Loader; ModuleLoader is
// the in-process implementation backed by a table of named modules, and
// ChainLoader composes several of them.
package plugin
