// Package restapi implements the control-plane REST adapter: a thin
// net/http layer over the instance Lifecycle Manager exposing the eight
// operations that create, inspect, and tear down mock instances and their
// expectations.
package restapi
