// Package client contains the remote-facing building blocks of the foodie
// client.
//
// # Overview
//
//  1. The Client interface: identity calls (Register, GetSalt, Login), Ping,
//     and the push-sync document calls Write and Subscribe.
//  2. GRPCClient, the gRPC implementation over the syncapi service. It injects
//     the access token into unary and streaming calls, refreshes an expired
//     token once per call, and maps status codes to sentinel errors.
//  3. InitDatabase and RunMigrations, which open the local SQLite cache and
//     apply the embedded goose migrations.
//
// # Errors
//
// ErrUnavailable, ErrUnauthorized, ErrAlreadyExists and ErrNotLoggedIn can be
// matched with errors.Is.
package client
