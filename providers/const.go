package providers

import (
	"github.com/blase-lsp/blase/config"
	"github.com/blase-lsp/blase/loader"
	"github.com/blase-lsp/blase/scheduler"
	"github.com/blase-lsp/blase/state"
	"github.com/blase-lsp/blase/syntax"
	"github.com/blase-lsp/blase/text"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
)

const Name = "blase"

// Version is set at build time.
var Version = "dev"

type Ctx = glsp.Context

var log = commonlog.GetLogger("blase.providers")

var (
	settings  = config.Default()
	registry  *syntax.Registry
	root      *state.Root
	workers   *scheduler.Scheduler
	views     *loader.Loader
	publisher *Publisher

	workspaceRoot string
	encoding      = text.UTF16
)

var (
	supportDiagnostics = false
	supportProgress    = false
)
