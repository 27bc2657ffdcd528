package types

import (
	proto "github.com/tliron/glsp/protocol_3_16"
)

type Uri = proto.DocumentUri
type Position = proto.Position
type Range = proto.Range
type Diagnostic = proto.Diagnostic
type DiagnosticSeverity = proto.DiagnosticSeverity
