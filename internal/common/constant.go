// Package common contains shared constants and sentinel errors used across
// licensegate components.
package common

// AuthorizationHeaderName carries the raw session token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// ServiceTokenMetadataKey is the gRPC metadata key carrying the calling
// service's JWT when service authentication is enabled.
const ServiceTokenMetadataKey = "service_token"
