// Package flows contains the orchestration behind every Engine operation.
//
// Each Run* function takes a dependency struct of plain funcs plus the metric
// ids, audit event names and sentinel errors it reports with. Flows hold no
// state between calls and perform no I/O except through those funcs, which
// keeps the Engine thin and lets every branch be tested with stubs.
//
// Flows must not import the root package.
package flows
