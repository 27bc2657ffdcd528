package providers

import (
	"slices"

	"github.com/blase-lsp/blase/config"
	"github.com/blase-lsp/blase/i18n"
	proto "github.com/tliron/glsp/protocol_3_16"
)

func ConfigurationChange(ctx *Ctx, params *proto.DidChangeConfigurationParams) error {
	options, err := config.DecodeClientOptions(params.Settings)

	if err != nil {
		return err
	}

	return applyOptions(ctx, options)
}

func applyOptions(ctx *Ctx, options config.ClientOptions) error {
	prev := settings
	next, err := settings.With(options)

	if err != nil {
		return err
	}

	settings = next

	if next.Locale != i18n.Locale() {
		if err = i18n.SetLocale(next.Locale); err != nil {
			return err
		}

		if root != nil {
			root.ResetDiagnostics()
		}
	}

	if next.DiagnosticsDelay != prev.DiagnosticsDelay && publisher != nil {
		publisher.Stop()
		publisher = NewPublisher(next.DiagnosticsDelay)
	}

	if root == nil {
		return nil
	}

	if views != nil && (next.Watch != prev.Watch || !slices.Equal(next.ViewPaths, prev.ViewPaths)) {
		startViews(ctx)
	}

	for _, uri := range root.Store.Uris() {
		publisher.Schedule(ctx, uri)
	}

	return nil
}
