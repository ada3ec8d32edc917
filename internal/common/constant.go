// Package common contains shared constants and sentinel errors used across
// foodie components.
package common

// AccessTokenHeaderName is the gRPC/HTTP metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"
