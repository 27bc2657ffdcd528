//go:build !wasm && !wasip1

package providers

import (
	"fmt"

	"github.com/blase-lsp/blase/config"
	serv "github.com/tliron/glsp/server"
	"go.uber.org/multierr"
)

func StartServer(cfg config.Config) (err error) {
	Configure(cfg)

	server := serv.NewServer(CreateRequestHandler(), Name, cfg.Verbosity > 2)

	if cfg.WebSocket > 0 {
		err = server.RunWebSocket(fmt.Sprintf("127.0.0.1:%d", cfg.WebSocket))
	} else {
		err = server.RunStdio()
	}

	return multierr.Append(err, shutdown())
}
