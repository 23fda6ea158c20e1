// Package ports defines the interfaces (ports) that external adapters must implement.
// The remote object store is reached only through Connection; the SOAP client and
// the in-memory org are the two adapters.
package ports
