// Package deps defines the dependency model and the contracts of the
// components that fetch, parse, check and update dependency files.
//
// Ecosystem specific implementations live in the ecosystem packages, the
// generic FileFetcher and UpdateChecker implementations in this package are
// shared by all of them.
package deps
