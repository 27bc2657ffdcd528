package providers

import (
	. "github.com/blase-lsp/blase/utils"
	proto "github.com/tliron/glsp/protocol_3_16"
)

// WorkDoneProgress reports loader progress with $/progress notifications
// on a token created by the server.
type WorkDoneProgress struct {
	ctx *Ctx
}

func (p *WorkDoneProgress) Begin(token string, title string, message string) {
	if p.ctx.Call != nil {
		var res any

		p.ctx.Call(proto.ServerWindowWorkDoneProgressCreate, proto.WorkDoneProgressCreateParams{
			Token: proto.ProgressToken{Value: token},
		}, &res)
	}

	p.notify(token, proto.WorkDoneProgressBegin{
		Kind:       "begin",
		Title:      title,
		Message:    &message,
		Percentage: P[proto.UInteger](0),
	})
}

func (p *WorkDoneProgress) Report(token string, message string, percentage uint32) {
	p.notify(token, proto.WorkDoneProgressReport{
		Kind:       "report",
		Message:    &message,
		Percentage: P(percentage),
	})
}

func (p *WorkDoneProgress) End(token string, message string) {
	p.notify(token, proto.WorkDoneProgressEnd{
		Kind:    "end",
		Message: &message,
	})
}

func (p *WorkDoneProgress) notify(token string, value any) {
	p.ctx.Notify(proto.MethodProgress, proto.ProgressParams{
		Token: proto.ProgressToken{Value: token},
		Value: value,
	})
}
