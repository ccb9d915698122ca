package eval

// NodeKind is the closed set of syntax node kinds the parser produces.
// Only a subset of them is evaluable; the rest exist so rejections can name what was found.
type NodeKind uint8

const (
	NodeConstant NodeKind = iota + 1
	NodeUnaryOp
	NodeBinOp
	NodeCompare
	NodeBoolOp
	NodeName
	NodeCall
	NodeAttribute
	NodeSubscript
	NodeString
	NodeFloat
	NodeTuple
	NodeList
)

var nodeKindNames = map[NodeKind]string{
	NodeConstant:  "Constant",
	NodeUnaryOp:   "UnaryOp",
	NodeBinOp:     "BinOp",
	NodeCompare:   "Compare",
	NodeBoolOp:    "BoolOp",
	NodeName:      "Name",
	NodeCall:      "Call",
	NodeAttribute: "Attribute",
	NodeSubscript: "Subscript",
	NodeString:    "Constant(str)",
	NodeFloat:     "Constant(float)",
	NodeTuple:     "Tuple",
	NodeList:      "List",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Node is one syntax tree node. Which fields are set depends on Kind.
type Node struct {
	Kind NodeKind
	Pos  int

	Int  int64  // NodeConstant
	Text string // literal or identifier text

	Op          string   // NodeUnaryOp, NodeBinOp, NodeBoolOp
	Left        *Node    // operand of NodeUnaryOp, left side of NodeBinOp and NodeCompare, target of NodeCall/NodeAttribute/NodeSubscript
	Right       *Node    // NodeBinOp, NodeSubscript
	Ops         []string // NodeCompare
	Comparators []*Node  // NodeCompare
	Elts        []*Node  // NodeBoolOp values, NodeCall args, NodeTuple, NodeList
}
