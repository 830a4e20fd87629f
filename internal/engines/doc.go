// Package engines holds the shared machinery for external ML engine clients.
// Each engine lives in its own subpackage and shells out to (or calls over
// HTTP) a collaborator process the core does not implement; the parent
// package provides the lazy handle lifecycle they share.
package engines
