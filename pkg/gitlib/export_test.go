package gitlib

// HeaderFunction exposes headerFunction for tests.
var HeaderFunction = headerFunction
