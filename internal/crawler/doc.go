// Package crawler defines the core domain types and collaborator contracts
// shared across subsystems. The rest of the module depends on these
// interfaces rather than on concrete implementations, so production and
// test doubles are interchangeable.
package crawler
