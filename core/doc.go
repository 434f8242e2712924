// Package core holds the Vezgo client contracts: configuration, the error
// taxonomy, resource descriptors and the generic resource client. Transport
// and token exchange live in sibling packages and are plugged in through
// TransportFactory and AuthFactory.
package core
