// Package features turns raw transaction rows into the engineered table the
// preprocessor consumes. Every function returns a new frame and leaves its
// input untouched.
package features
