// Package lightblue executes request descriptors against a lightblue data
// service. A Client joins its base URI with each descriptor's path, hands the
// call to a transport.Transport and wraps the returned text in a
// response.Envelope. The client never interprets the envelope; a status of
// "error" reaches the caller as data.
//
// NewFromEnv resolves the transport from LIGHTBLUE_ prefixed environment
// variables. With LIGHTBLUE_RUNTIME_MODE=mock, or in auto mode without
// LIGHTBLUE_DATA_SERVICE_URI, the client talks to an in-memory memstore.Store
// optionally seeded from LIGHTBLUE_MOCK_SEED.
package lightblue
