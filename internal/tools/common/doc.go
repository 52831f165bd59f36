// Package common holds the pieces every reader tool shares: the
// instrumented handler wrapper, argument parsing and result rendering.
package common
