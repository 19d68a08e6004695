// Package upstream resolves canonical version identities and download URLs
// from the distribution services mcsm installs from.
//
// The Client applies the two timeout classes (metadata and download), the
// identifying User-Agent header and the optional retry policy. Resolver turns
// a (platform, game version) or (target, game version) pair into a plan entry.
// Resolvers are stateless; every call goes to the network.
package upstream
