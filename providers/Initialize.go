package providers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blase-lsp/blase/config"
	"github.com/blase-lsp/blase/i18n"
	"github.com/blase-lsp/blase/scheduler"
	"github.com/blase-lsp/blase/state"
	"github.com/blase-lsp/blase/syntax/languages"
	"github.com/blase-lsp/blase/text"
	. "github.com/blase-lsp/blase/utils"
	"github.com/sourcegraph/jsonrpc2"
	proto "github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/multierr"
)

var clientEncodings []string

// RequestFailed of LSP 3.17
const codeRequestFailed = -32803

var ErrMultipleFolders = errors.New("multiple workspace folders are not supported")

// ServerCapabilities adds the 3.17 positionEncoding to the 3.16 set.
type ServerCapabilities struct {
	proto.ServerCapabilities
	PositionEncoding string `json:"positionEncoding,omitempty"`
}

func (c ServerCapabilities) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(c.ServerCapabilities)

	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if err = json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	if c.PositionEncoding != "" {
		fields["positionEncoding"] = c.PositionEncoding
	}

	return json.Marshal(fields)
}

type InitializeResult struct {
	Capabilities ServerCapabilities               `json:"capabilities"`
	ServerInfo   *proto.InitializeResultServerInfo `json:"serverInfo,omitempty"`
}

// Configure sets the server settings a session starts with.
func Configure(cfg config.Config) {
	settings = cfg
}

func Initialize(ctx *Ctx, params *proto.InitializeParams) (any, error) {
	folder, err := workspaceFolder(params)

	if err != nil {
		return nil, &jsonrpc2.Error{
			Code:    codeRequestFailed,
			Message: err.Error(),
		}
	}

	options, err := config.DecodeClientOptions(params.InitializationOptions)

	if err == nil {
		var merged config.Config

		merged, err = settings.With(options)

		if err == nil {
			settings = merged
		}
	}

	if err != nil {
		log.Warningf("initialization options: %s", err)
	}

	if err := i18n.SetLocale(settings.Locale); err != nil {
		log.Warningf("%s", err)
	}

	encoding = text.Negotiate(clientEncodings)

	if registry != nil {
		_ = registry.Close()
	}

	registry, err = languages.New(settings.ParserPoolSize)

	if err != nil {
		return nil, err
	}

	root = state.CreateRoot(registry, state.Options{
		Encoding:   encoding,
		StrictOpen: settings.StrictOpen,
	})

	if workers != nil {
		workers.Stop()
	}

	workers = scheduler.New(256, 2)
	workers.Run()

	publisher = NewPublisher(settings.DiagnosticsDelay)

	workspaceRoot = ""

	if folder != "" {
		workspaceRoot, err = UriToPath(folder)

		if err != nil {
			return nil, err
		}
	}

	caps := params.Capabilities

	supportDiagnostics = caps.TextDocument != nil && caps.TextDocument.PublishDiagnostics != nil
	supportProgress = caps.Window != nil && caps.Window.WorkDoneProgress != nil && *caps.Window.WorkDoneProgress

	log.Infof("initialized with %s positions, workspace %q", encoding, workspaceRoot)

	return InitializeResult{
		Capabilities: capabilities(encoding),
		ServerInfo: &proto.InitializeResultServerInfo{
			Name:    Name,
			Version: &Version,
		},
	}, nil
}

func capabilities(enc text.Encoding) ServerCapabilities {
	syncKind := proto.TextDocumentSyncKindIncremental

	return ServerCapabilities{
		ServerCapabilities: proto.ServerCapabilities{
			TextDocumentSync: proto.TextDocumentSyncOptions{
				OpenClose: &proto.True,
				Change:    &syncKind,
				Save: &proto.SaveOptions{
					IncludeText: &proto.True,
				},
			},
		},
		PositionEncoding: enc.String(),
	}
}

func workspaceFolder(params *proto.InitializeParams) (string, error) {
	if len(params.WorkspaceFolders) > 1 {
		return "", fmt.Errorf("%w: got %d", ErrMultipleFolders, len(params.WorkspaceFolders))
	}

	if len(params.WorkspaceFolders) == 1 {
		return params.WorkspaceFolders[0].URI, nil
	}

	if params.RootURI != nil {
		return *params.RootURI, nil
	}

	if params.RootPath != nil {
		return ToUri(*params.RootPath), nil
	}

	return "", nil
}

func Initialized(ctx *Ctx, params *proto.InitializedParams) error {
	if !settings.LoadWorkspace || workspaceRoot == "" {
		return nil
	}

	startViews(ctx)

	return nil
}

func Shutdown(ctx *Ctx) error {
	log.Info("shutting down")

	return shutdown()
}

func shutdown() (err error) {
	if views != nil {
		views.Stop()
	}

	if publisher != nil {
		publisher.Stop()
	}

	if workers != nil {
		workers.Stop()
	}

	if registry != nil {
		err = multierr.Append(err, registry.Close())
		registry = nil
	}

	return
}

func SetTrace(ctx *Ctx, params *proto.SetTraceParams) error {
	return nil
}

func CancelRequest(ctx *Ctx, params *proto.CancelParams) error {
	return nil
}
