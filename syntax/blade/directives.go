package blade

import "slices"

type inlineRule uint8

const (
	inlineNever inlineRule = iota
	// any argument list makes the opener a standalone directive, @php($x = 1)
	inlineWithArgs
	// a second argument makes the opener standalone, @section('title', 'Home')
	inlineWithValue
)

type block struct {
	kind    string
	middles []string
	closers []string
	inline  inlineRule
	raw     string
}

func (b *block) accepts(d *directive) bool {
	if slices.Contains(b.closers, d.name) {
		return true
	}

	if !slices.Contains(b.middles, d.name) {
		return false
	}

	// @empty($x) opens its own block, bare @empty splits a @forelse
	return d.name != "empty" || !d.hasArgs
}

func (b *block) closes(d *directive) bool {
	return slices.Contains(b.closers, d.name)
}

func conditional(middles []string, closers ...string) *block {
	return &block{kind: KindConditional, middles: middles, closers: closers}
}

var (
	orElse = []string{"else"}

	blocks = map[string]*block{
		"if":             conditional([]string{"elseif", "else"}, "endif"),
		"unless":         conditional(orElse, "endunless"),
		"isset":          conditional(orElse, "endisset"),
		"empty":          conditional(orElse, "endempty"),
		"auth":           conditional(orElse, "endauth"),
		"guest":          conditional(orElse, "endguest"),
		"env":            conditional(orElse, "endenv"),
		"production":     conditional(orElse, "endproduction"),
		"hasSection":     conditional(orElse, "endif"),
		"sectionMissing": conditional(orElse, "endif"),
		"can":            conditional([]string{"elsecan", "else"}, "endcan"),
		"cannot":         conditional([]string{"elsecannot", "else"}, "endcannot"),
		"canany":         conditional([]string{"elsecanany", "else"}, "endcanany"),
		"error":          conditional(orElse, "enderror"),

		"foreach": {kind: KindLoop, closers: []string{"endforeach"}},
		"for":     {kind: KindLoop, closers: []string{"endfor"}},
		"while":   {kind: KindLoop, closers: []string{"endwhile"}},
		"forelse": {kind: KindLoop, middles: []string{"empty"}, closers: []string{"endforelse"}},

		"switch": {kind: KindSwitch, closers: []string{"endswitch"}},

		"section": {
			kind:    KindSection,
			closers: []string{"endsection", "show", "stop", "append", "overwrite"},
			inline:  inlineWithValue,
		},
		"push":      {kind: KindStack, closers: []string{"endpush"}, inline: inlineWithValue},
		"pushOnce":  {kind: KindStack, closers: []string{"endPushOnce"}},
		"prepend":   {kind: KindStack, closers: []string{"endprepend"}, inline: inlineWithValue},
		"component": {kind: KindComponent, closers: []string{"endcomponent"}},
		"slot":      {kind: KindSlot, closers: []string{"endslot"}, inline: inlineWithValue},
		"once":      {kind: KindOnce, closers: []string{"endonce"}},
		"fragment":  {kind: KindFragment, closers: []string{"endfragment"}},
		"session":   {kind: KindConditional, closers: []string{"endsession"}},

		"php":      {kind: KindPHPBlock, closers: []string{"endphp"}, inline: inlineWithArgs, raw: KindPHPCode},
		"verbatim": {kind: KindVerbatimBlock, closers: []string{"endverbatim"}, raw: KindVerbatimText},
	}

	standalone = []string{
		"append", "aware", "break", "case", "checked", "choice", "class", "continue",
		"csrf", "dd", "default", "disabled", "dump", "each", "extends", "extendsFirst",
		"include", "includeFirst", "includeIf", "includeUnless", "includeWhen", "inject",
		"js", "json", "lang", "livewire", "livewireScripts", "livewireStyles", "method",
		"overwrite", "parent", "props", "readonly", "required", "selected", "show",
		"stack", "stop", "style", "use", "vite", "viteReactRefresh", "yield",
	}

	// names that only make sense inside a block
	dependents = map[string]bool{}

	known = map[string]bool{}
)

func init() {
	for name, b := range blocks {
		known[name] = true

		for _, list := range [][]string{b.middles, b.closers} {
			for _, dep := range list {
				known[dep] = true
				dependents[dep] = true
			}
		}
	}

	for _, name := range standalone {
		known[name] = true
	}

	// standalone outside a @section block
	for _, name := range []string{"show", "stop", "append", "overwrite"} {
		delete(dependents, name)
	}
}

func opener(d *directive) *block {
	b, ok := blocks[d.name]

	if !ok {
		return nil
	}

	switch b.inline {
	case inlineWithArgs:
		if d.hasArgs {
			return nil
		}
	case inlineWithValue:
		if d.argCount > 1 {
			return nil
		}
	}

	if d.name == "empty" && !d.hasArgs {
		return nil
	}

	return b
}
