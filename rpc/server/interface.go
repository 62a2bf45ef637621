package server

import (
	"github.com/kolbkit/ckv/facade"
	"github.com/kolbkit/ckv/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters.
// It is responsible for turning a wire-level request into a facade
// call, and the facade's result back into a wire-level response.
type IRPCServerAdapter interface {
	// Handle handles a request against f and returns a response.
	// If an error occurs, it is carried in the response's Err field.
	Handle(req *common.Message, f *facade.Facade) (resp *common.Message)
}
