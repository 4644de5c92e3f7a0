// Package job defines the metadata attached to one unit of work and the
// closed set of outcomes a task body may produce.
//
// It is a leaf package: middleware and the runner both depend on it, so
// it must not import any other keel package.
package job
