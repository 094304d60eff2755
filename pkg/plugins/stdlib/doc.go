// Package stdlib provides the built-in plugin modules available to schemas
// through import-path descriptors:
//
//	plugins:
//	  - datetime:datetime            # binds "datetime"
//	  - {b64: base64:b64encode}      # binds "b64"
//
// Modules: datetime, json, yaml, math, re, uuid, base64 and strings. Loader
// returns a plugin.ModuleLoader serving all of them.
package stdlib
