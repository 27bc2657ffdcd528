//go:build wasm || wasip1

package providers

import (
	"context"

	"github.com/blase-lsp/blase/config"
	"github.com/sourcegraph/jsonrpc2"
)

func StartServer(cfg config.Config) error {
	Configure(cfg)

	stream := NewStdioStream()
	handler := CreateRequestHandler()

	conn := jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(stream, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(handler.RpcHandle),
	)

	<-conn.DisconnectNotify()

	return shutdown()
}
