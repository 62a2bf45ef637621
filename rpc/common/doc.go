// Package common provides the wire protocol and configuration structures
// shared between the RPC client and server: the Message envelope exchanged
// over a transport, the MessageType enumeration of supported operations,
// and the ServerConfig/ClientConfig structures consumed by cmd/.
package common
