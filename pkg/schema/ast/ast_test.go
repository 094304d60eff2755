package ast

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		tag     string
		want    Kind
		wantErr bool
	}{
		{"literal", KindLiteral, false},
		{"Literal", KindLiteral, false},
		{"expr", KindExpr, false},
		{"Expression", KindExpr, false},
		{"TUPLE", KindTuple, false},
		{"list", KindList, false},
		{"object", KindObject, false},
		{"dict", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseKind(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, schemaerrors.ErrSchemaDefinition) {
				t.Errorf("ParseKind(%q) error kind = %q", tt.tag, schemaerrors.KindOf(err))
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestBuilders(t *testing.T) {
	n := WithComputed(
		WithCtx(Object(
			F("id", Literal("hello")),
			F("opt", WithIf(Expression("$0.flag"), E("truth", "$0.flag"))),
		), "flag", false),
		F("now", Expression("$1.clock")),
	)
	WithPlugins(n, ImportPath{Path: "datetime"}, NamedPlugin{Name: "clock", Source: ExprPlugin{Expr: E("$1.datetime:datetime.now")}})

	if n.Kind() != KindObject {
		t.Errorf("Kind() = %q", n.Kind())
	}
	if n.Meta().Ctx.Len() != 1 {
		t.Errorf("Ctx = %v", n.Meta().Ctx.Keys())
	}
	if len(n.Meta().Plugins) != 2 || len(n.Meta().Computed) != 1 {
		t.Errorf("Plugins = %d, Computed = %d", len(n.Meta().Plugins), len(n.Meta().Computed))
	}
	if n.Fields[0].Node.Meta().HasGuard() {
		t.Error("unguarded field reports a guard")
	}
	if !n.Fields[1].Node.Meta().HasGuard() {
		t.Error("guarded field reports no guard")
	}
	if WithIf(Literal(1), E()).HasGuard() {
		t.Error("empty guard reports a guard")
	}
}

func TestExpr_String(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"reference", E("$0.rec"), `["$0.rec"]`},
		{"nested", E("concat", "id_", E("str", "$0.loop_index")), `["concat","id_",["str","$0.loop_index"]]`},
		{"literals", E("add", int64(1), 2.5, nil, true), `["add",1,2.5,null,true]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPluginDescriptor_String(t *testing.T) {
	tests := []struct {
		d    PluginDescriptor
		want string
	}{
		{ImportPath{Path: "datetime:datetime"}, "datetime:datetime"},
		{ExprPlugin{Expr: E("$1.datetime:datetime")}, `["$1.datetime:datetime"]`},
		{NamedPlugin{Name: "dt", Source: ImportPath{Path: "datetime"}}, "dt=datetime"},
		{NamedPlugin{Name: "dt"}, "dt=<nil>"},
	}

	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestWalk(t *testing.T) {
	root := WithComputed(
		Object(
			F("items", List(E("$0.rec"), Tuple(Literal(1), Expression("$0.loop_item")))),
			F("name", Literal("x")),
		),
		F("total", Expression("len", "$0.rec")),
	)

	var paths []string
	Walk(root, func(path string, n Node) bool {
		paths = append(paths, path+":"+string(n.Kind()))
		return true
	})

	want := []string{
		"$:object",
		"$.computed.total:expr",
		"$.items:list",
		"$.items.each:tuple",
		"$.items.each[0]:literal",
		"$.items.each[1]:expr",
		"$.name:literal",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("Walk() paths mismatch (-want +got):\n%s", diff)
	}

	var visited int
	Walk(root, func(path string, n Node) bool {
		visited++
		return n.Kind() != KindList
	})
	if visited != 4 {
		t.Errorf("Walk() with pruning visited %d nodes, want 4", visited)
	}

	if d := Depth(root); d != 4 {
		t.Errorf("Depth() = %d, want 4", d)
	}
	if d := Depth(Literal(nil)); d != 1 {
		t.Errorf("Depth(leaf) = %d, want 1", d)
	}
}
