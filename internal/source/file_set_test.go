package source

import "testing"

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("unit.toml", []byte("[unit]\nname = \"A\"\n\n[[types]]\n"))

	tests := []struct {
		name string
		off  uint32
		want LineCol
	}{
		{name: "file start", off: 0, want: LineCol{Line: 1, Col: 1}},
		{name: "first newline", off: 6, want: LineCol{Line: 1, Col: 7}},
		{name: "second line", off: 7, want: LineCol{Line: 2, Col: 1}},
		{name: "after blank line", off: 19, want: LineCol{Line: 4, Col: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
			if start != tt.want {
				t.Fatalf("offset %d: got %+v, want %+v", tt.off, start, tt.want)
			}
		})
	}
}

func TestFileSetGetLatest(t *testing.T) {
	fs := NewFileSet()
	first := fs.Add("a/../unit.toml", []byte("x"), 0)
	second := fs.Add("unit.toml", []byte("y"), 0)
	if first == second {
		t.Fatalf("expected distinct ids, got %d twice", first)
	}
	got, ok := fs.GetLatest("unit.toml")
	if !ok || got != second {
		t.Fatalf("GetLatest = %d, %v; want %d", got, ok, second)
	}
	if line := fs.Get(second).GetLine(1); line != "y" {
		t.Fatalf("GetLine(1) = %q", line)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 12}
	if got := a.Cover(b); got != (Span{File: 1, Start: 5, End: 20}) {
		t.Fatalf("Cover = %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 50}); got != a {
		t.Fatalf("cross-file Cover changed span: %v", got)
	}
}
