// Package jpayload decides where the payload bytes of a JDWP packet live
// and how they are handed to readers.
//
// Every packet owns exactly one [Provider]. The [Factory] picks the variant
// from the declared payload length:
//
//   - [Empty] for packets with no payload.
//   - [InMemory] for payloads small enough to read eagerly.
//   - [Sliced] for large payloads that stay on the shared connection stream
//     until someone reads them.
//
// [StreamBacked] holds a payload in a rewindable source.
// It is produced when a large payload is taken offline into a spool file,
// or constructed directly over a caller-supplied rewindable source.
//
// Readers use a scoped acquisition: a successful [Provider.Acquire] is
// always followed by exactly one [Provider.Release], typically deferred.
// Before the shared connection stream is used for the next packet,
// the owner calls [Provider.Shutdown] so that any unread payload bytes
// are drained and the stream lines up with the next header.
package jpayload
