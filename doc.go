// Package jdwp contains the packet types for a JDWP-style debugging transport.
//
// A [Packet] combines a decoded [Header] with a [jpayload.Provider]
// that owns the decision of where the payload bytes live.
//
// Packets come in two flavors.
// An ephemeral packet, created by [NewEphemeral] or by the connection reader
// in package jconn, is only valid while the connection stream it came from
// has not moved on to the next packet, and it is meant for a single owner.
// An offline packet, created by [*Packet.ToOffline], holds a self-contained
// payload that outlives the connection, and it serializes payload access
// so that concurrent readers never interleave.
package jdwp
