// Package script discovers and executes Starlark glue units. All units of a
// run share one mutable global context: globals exported by an executed
// unit are visible to every unit executed after it. Each unit runs its
// top-level code exactly once per backend, however many glue paths reach
// it. Registration builtins predeclared for glue scripts forward step and
// hook definitions to the backend that owns the loader.
package script
