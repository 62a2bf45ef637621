// Package rpc provides remote access to a facade.Facade: the same six
// operations the in-process facade exposes, reachable over a network
// transport instead of a function call.
//
// The package is organized into several subpackages:
//
//   - common: the Message wire protocol, the MessageType enumeration,
//     and the ServerConfig/ClientConfig structures consumed by cmd/.
//
//   - transport: network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options
//     (binary, JSON, GOB) for converting between Message objects and
//     byte arrays.
//
//   - client: the RPC client, which exposes a facade.Facade-shaped
//     interface backed by a remote connection.
//
//   - server: the RPC server, which dispatches incoming Messages
//     against a single facade.Facade.
package rpc
