package resolve

// typingMembers lists the public exports of the typing module. Kept static
// so resolution never depends on a Python interpreter.
var typingMembers = []string{
	"AbstractSet", "Annotated", "Any", "AnyStr", "AsyncContextManager",
	"AsyncGenerator", "AsyncIterable", "AsyncIterator", "Awaitable",
	"BinaryIO", "Callable", "ChainMap", "ClassVar", "Collection",
	"Concatenate", "Container", "ContextManager", "Coroutine", "Counter",
	"DefaultDict", "Deque", "Dict", "Final", "ForwardRef", "FrozenSet",
	"Generator", "Generic", "Hashable", "IO", "ItemsView", "Iterable",
	"Iterator", "KeysView", "List", "Literal", "LiteralString", "Mapping",
	"MappingView", "Match", "MutableMapping", "MutableSequence",
	"MutableSet", "NamedTuple", "Never", "NewType", "NoReturn", "Optional",
	"OrderedDict", "ParamSpec", "ParamSpecArgs", "ParamSpecKwargs",
	"Pattern", "Protocol", "Required", "NotRequired", "Reversible", "Self",
	"Sequence", "Set", "Sized", "SupportsAbs", "SupportsBytes",
	"SupportsComplex", "SupportsFloat", "SupportsIndex", "SupportsInt",
	"SupportsRound", "Text", "TextIO", "Tuple", "Type", "TypeAlias",
	"TypeGuard", "TypeVar", "TypeVarTuple", "TypedDict", "Union", "Unpack",
	"ValuesView", "TYPE_CHECKING", "cast", "final", "get_args",
	"get_origin", "get_type_hints", "no_type_check", "overload",
	"runtime_checkable",
}

// TypingMembers resolves names exported by the typing module.
type TypingMembers struct {
	table map[string]string
}

// NewTypingMembers builds the typing provider.
func NewTypingMembers() *TypingMembers {
	table := make(map[string]string, len(typingMembers))

	for _, member := range typingMembers {
		table[member] = "from typing import " + member
	}

	return &TypingMembers{table: table}
}

// Name implements Provider.
func (t *TypingMembers) Name() string {
	return "typing-members"
}

// Lookup implements Provider.
func (t *TypingMembers) Lookup(name string) (string, bool) {
	stmt, ok := t.table[name]

	return stmt, ok
}
