// Package util holds small string helpers for handling credentials read
// from the environment.
package util
