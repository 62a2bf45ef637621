// Package server implements the RPC server side of ckv: a thin layer that
// turns deserialized wire Messages into calls against a single
// facade.Facade, and the facade's results back into wire Messages.
//
// The package focuses on:
//   - Translating get/set/remove/findKeys/getSub/setSub requests into
//     facade.Facade calls
//   - Building the facade's backend (memmap or sqlite) from
//     common.ServerConfig
//   - Waiting for the write-completed signal on Set/Remove/SetSub before
//     responding, since an RPC caller has no channel to wait on itself
//
// Key Components:
//
//   - IRPCServerAdapter: the contract between the transport-facing
//     server and the facade-facing adapter.
//
//   - NewFacadeServerAdapter: the adapter implementation used in
//     production; it is the only adapter this package ships, since a
//     server now fronts exactly one facade rather than a set of shards.
//
//   - NewRPCServer: builds a server from a ServerConfig, a transport and
//     a serializer.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:  "0.0.0.0:8080",
//	  Backend:   "sqlite",
//	  DataDir:   "/var/lib/ckv/data.db",
//	  CacheSize: 10000,
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent
//	requests across multiple connections. Each request is processed
//	independently by the underlying facade, which serializes per-key
//	writes internally.
package server
