package eventlog

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
)

// Filter is a parsed AIP-160 event filter. The zero Filter matches every
// event.
type Filter struct {
	text string
	root *filterNode
}

// SQLCondition is a WHERE clause fragment with positional parameters.
type SQLCondition struct {
	Clause string
	Params []any
}

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldInt
	fieldTimestamp
)

type filterField struct {
	column string
	kind   fieldKind
}

var filterFields = map[string]filterField{
	"kind":      {column: "kind", kind: fieldString},
	"entity_id": {column: "entity_id", kind: fieldString},
	"sender":    {column: "sender", kind: fieldString},
	"tx_id":     {column: "tx_id", kind: fieldString},
	"seq":       {column: "seq", kind: fieldInt},
	"tx_seq":    {column: "tx_seq", kind: fieldInt},
	"ts":        {column: "timestamp_ms", kind: fieldTimestamp},
}

type filterNode struct {
	op    string
	left  *filterNode
	right *filterNode
	field string
	cmp   string
	str   string
	num   int64
}

func declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("kind", filtering.TypeString),
		filtering.DeclareIdent("entity_id", filtering.TypeString),
		filtering.DeclareIdent("sender", filtering.TypeString),
		filtering.DeclareIdent("tx_id", filtering.TypeString),
		filtering.DeclareIdent("seq", filtering.TypeInt),
		filtering.DeclareIdent("tx_seq", filtering.TypeInt),
		filtering.DeclareIdent("ts", filtering.TypeTimestamp),
	)
}

// ParseFilter parses an AIP-160 expression over the fields kind, entity_id,
// sender, tx_id, seq, tx_seq and ts. An empty string yields the zero Filter.
func ParseFilter(text string) (Filter, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Filter{}, nil
	}
	decls, err := declarations()
	if err != nil {
		return Filter{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(text, decls)
	if err != nil {
		return Filter{}, invalidFilter(text, err)
	}
	root, err := translateExpr(parsed.CheckedExpr.GetExpr())
	if err != nil {
		return Filter{}, invalidFilter(text, err)
	}
	return Filter{text: text, root: root}, nil
}

func invalidFilter(text string, cause error) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "invalid event filter: "+cause.Error(), map[string]string{
		"Field":  "filter",
		"Reason": cause.Error(),
	})
}

// String returns the source expression.
func (f Filter) String() string {
	return f.text
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.root == nil
}

// Match evaluates the filter against evt.
func (f Filter) Match(evt event.Event) bool {
	if f.root == nil {
		return true
	}
	return f.root.match(evt)
}

// Predicate adapts the filter for Memory.Query.
func (f Filter) Predicate() Predicate {
	return f.Match
}

// SQL renders the filter as a WHERE fragment over the events table.
func (f Filter) SQL() SQLCondition {
	if f.root == nil {
		return SQLCondition{}
	}
	return f.root.sql()
}

func (n *filterNode) match(evt event.Event) bool {
	switch n.op {
	case "and":
		return n.left.match(evt) && n.right.match(evt)
	case "or":
		return n.left.match(evt) || n.right.match(evt)
	case "not":
		return !n.left.match(evt)
	}

	field := filterFields[n.field]
	switch field.kind {
	case fieldString:
		return compare(strings.Compare(stringField(evt, n.field), n.str), n.cmp)
	case fieldInt:
		return compare(compareInt(intField(evt, n.field), n.num), n.cmp)
	case fieldTimestamp:
		return compare(compareInt(evt.Timestamp.UnixMilli(), n.num), n.cmp)
	}
	return false
}

func (n *filterNode) sql() SQLCondition {
	switch n.op {
	case "and", "or":
		left := n.left.sql()
		right := n.right.sql()
		return SQLCondition{
			Clause: fmt.Sprintf("(%s %s %s)", left.Clause, strings.ToUpper(n.op), right.Clause),
			Params: append(left.Params, right.Params...),
		}
	case "not":
		inner := n.left.sql()
		return SQLCondition{Clause: fmt.Sprintf("(NOT %s)", inner.Clause), Params: inner.Params}
	}

	field := filterFields[n.field]
	var param any = n.num
	if field.kind == fieldString {
		param = n.str
	}
	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", field.column, n.cmp),
		Params: []any{param},
	}
}

func stringField(evt event.Event, name string) string {
	switch name {
	case "kind":
		return string(evt.Kind)
	case "entity_id":
		return evt.EntityID
	case "sender":
		return evt.Sender
	case "tx_id":
		return evt.TxID
	}
	return ""
}

func intField(evt event.Event, name string) int64 {
	switch name {
	case "seq":
		return int64(evt.Seq)
	case "tx_seq":
		return int64(evt.TxSeq)
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compare(c int, op string) bool {
	switch op {
	case "=":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func translateExpr(e *expr.Expr) (*filterNode, error) {
	if e == nil {
		return nil, fmt.Errorf("empty expression")
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return nil, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	return translateCall(call.CallExpr)
}

func translateCall(call *expr.Expr_Call) (*filterNode, error) {
	switch call.Function {
	case "AND", "_&&_":
		return translateLogical("and", call.Args)
	case "OR", "_||_":
		return translateLogical("or", call.Args)
	case "NOT", "!_":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translateExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		return &filterNode{op: "not", left: inner}, nil
	case "=", "_==_":
		return translateComparison(call.Args, "=")
	case "!=", "_!=_":
		return translateComparison(call.Args, "!=")
	case "<", "_<_":
		return translateComparison(call.Args, "<")
	case "<=", "_<=_":
		return translateComparison(call.Args, "<=")
	case ">", "_>_":
		return translateComparison(call.Args, ">")
	case ">=", "_>=_":
		return translateComparison(call.Args, ">=")
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateLogical(op string, args []*expr.Expr) (*filterNode, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s requires at least 2 arguments", strings.ToUpper(op))
	}
	node, err := translateExpr(args[0])
	if err != nil {
		return nil, err
	}
	for _, arg := range args[1:] {
		right, err := translateExpr(arg)
		if err != nil {
			return nil, err
		}
		node = &filterNode{op: op, left: node, right: right}
	}
	return node, nil
}

func translateComparison(args []*expr.Expr, cmp string) (*filterNode, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return nil, fmt.Errorf("expected identifier on the left of %s", cmp)
	}
	name := ident.IdentExpr.GetName()
	field, ok := filterFields[name]
	if !ok {
		return nil, fmt.Errorf("unknown field: %s", name)
	}

	node := &filterNode{op: "cmp", field: name, cmp: cmp}
	switch field.kind {
	case fieldString:
		value, err := constString(args[1])
		if err != nil {
			return nil, err
		}
		node.str = value
	case fieldInt:
		value, err := constInt(args[1])
		if err != nil {
			return nil, err
		}
		node.num = value
	case fieldTimestamp:
		value, err := timestampMillis(args[1])
		if err != nil {
			return nil, err
		}
		node.num = value
	}
	return node, nil
}

func constString(e *expr.Expr) (string, error) {
	c := e.GetConstExpr()
	if c == nil {
		return "", fmt.Errorf("expected string constant")
	}
	value, ok := c.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return "", fmt.Errorf("expected string constant, got %T", c.GetConstantKind())
	}
	return value.StringValue, nil
}

func constInt(e *expr.Expr) (int64, error) {
	c := e.GetConstExpr()
	if c == nil {
		return 0, fmt.Errorf("expected integer constant")
	}
	switch value := c.GetConstantKind().(type) {
	case *expr.Constant_Int64Value:
		return value.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return int64(value.Uint64Value), nil
	default:
		return 0, fmt.Errorf("expected integer constant, got %T", value)
	}
}

func timestampMillis(e *expr.Expr) (int64, error) {
	call := e.GetCallExpr()
	if call == nil || call.GetFunction() != "timestamp" || len(call.GetArgs()) != 1 {
		return 0, fmt.Errorf("expected timestamp(\"...\")")
	}
	raw, err := constString(call.GetArgs()[0])
	if err != nil {
		return 0, fmt.Errorf("timestamp argument: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp format: %s", raw)
	}
	return t.UnixMilli(), nil
}
