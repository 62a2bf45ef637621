// Package client implements the RPC client side of ckv: a Client that
// exposes the same six operations as facade.Facade but reaches a remote
// server over a configured transport and serializer instead of an
// in-process cache-and-buffer layer.
//
// The package focuses on:
//   - Transparent RPC access to a remote facade.Facade
//   - Integration with the transport and serializer packages
//   - Turning RPC-layer errors (transport failures, server-side Err
//     fields) into plain Go errors
//
// Key Components:
//
//   - Client: the interface this package's NewRPCClient returns.
//
//   - NewRPCClient: factory function that connects transport using config
//     and wraps it in a Client that serializes requests with serializer.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:              []string{"localhost:5000"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	c, _ := client.NewRPCClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//
//	_ = c.Set("mykey", "myvalue")
//	value, found, _ := c.Get("mykey")
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing
//     ConnectionsPerEndpoint can improve throughput by allowing parallel
//     requests.
//
//   - The choice of serializer significantly affects performance. The
//     binary serializer provides the smallest payload size.
//
// Thread Safety:
//
//	Client implementations are safe for concurrent use from multiple
//	goroutines without additional synchronization.
package client
