// Package syncapi describes the wire contract between the foodie client and
// the remote document store.
//
// The service is plain gRPC. Messages are Go structs carried by a JSON codec
// registered under the "json" content subtype, so both sides only need this
// package and no generated code. Clients must dial with
//
//	grpc.WithDefaultCallOptions(grpc.CallContentSubtype(syncapi.CodecName))
//
// Documents are addressed by paths of the form "users/<userID>/<key>"; the
// server refuses any path whose user segment differs from the caller.
package syncapi
