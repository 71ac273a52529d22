package abi_test

import (
	"testing"

	"meridian/internal/abi"
	"meridian/internal/layout"
	"meridian/internal/mangle"
	"meridian/internal/testkit"
	"meridian/internal/types"
	"meridian/internal/vtable"
)

func lowering(f *testkit.Fixture) *abi.Lowering {
	le := layout.New(layout.X86_64LinuxGNU(), f.Types)
	le.Module = f.Module
	return abi.New(le, vtable.NewResolver(le), mangle.New(f.Types))
}

func TestFieldAccessPerStrategy(t *testing.T) {
	f := testkit.New()
	b := f.B()

	plain := f.Class("Plain", types.NoTypeID)
	f.Field(plain, "x", b.Int32)

	root := f.Class("NSObject", types.NoTypeID)
	root.Foreign = true
	view := f.Class("View", root.ID)
	f.Field(view, "width", b.Float64)

	local := f.Class("Local", types.NoTypeID)
	local.Resilient = true
	f.Field(local, "y", b.Int64)

	lib := f.Class("Remote", types.NoTypeID)
	lib.Resilient = true
	lib.Module = "Lib"
	f.Field(lib, "r", b.Int64)
	sub := f.Class("Sub", lib.ID)
	f.Field(sub, "z", b.Int8)

	lw := lowering(f)
	tests := []struct {
		name  string
		typ   types.TypeID
		field string
		want  abi.FieldAccess
	}{
		{"constant", plain.ID, "x", abi.FieldAccess{Strategy: layout.ConstantDirect, Offset: 16}},
		{"offset global", view.ID, "width", abi.FieldAccess{
			Strategy:     layout.NonConstantDirect,
			OffsetSymbol: lw.Mangle.FieldOffset(view, "width"),
		}},
		{"metadata word", local.ID, "y", abi.FieldAccess{Strategy: layout.ConstantIndirect, MetadataWord: 9}},
		{"relative word", sub.ID, "z", abi.FieldAccess{
			Strategy:     layout.NonConstantIndirect,
			MetadataWord: 0,
			LevelSymbol:  lw.Mangle.LevelOffset(sub),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lw.FieldAccess(tt.typ, tt.field)
			if err != nil {
				t.Fatalf("FieldAccess: %v", err)
			}
			if got != tt.want {
				t.Fatalf("FieldAccess = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := lw.FieldAccess(plain.ID, "missing"); err == nil {
		t.Fatalf("expected an error for an unknown field")
	}
}

func TestVirtualSlotAndInstanceSize(t *testing.T) {
	f := testkit.New()
	b := f.B()
	base := f.Class("Base", types.NoTypeID)
	f.Field(base, "a", b.Int64)
	draw := f.Method(base, "draw", nil, types.NoTypeID)
	box := f.Class("Box", base.ID, "T")
	f.Field(box, "value", f.Param(box, 0))
	over := f.Override(box, draw, nil, types.NoTypeID)

	lw := lowering(f)
	slot, err := lw.VirtualSlot(base.ID, draw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if slot.Index != 0 || slot.MetadataWord != 10 || slot.LevelSymbol != "" {
		t.Fatalf("base slot = %+v", slot)
	}

	size, err := lw.InstanceSize(base.ID)
	if err != nil || !size.Constant || size.Value != 24 {
		t.Fatalf("base size = %+v, %v", size, err)
	}
	mask, _ := lw.InstanceAlignMask(base.ID)
	if !mask.Constant || mask.Value != 7 {
		t.Fatalf("base align mask = %+v", mask)
	}

	generic := f.Bind(box, f.Param(box, 0))
	size, err = lw.InstanceSize(generic)
	if err != nil || size.Constant || size.MetadataWord != 5 {
		t.Fatalf("generic size = %+v, %v", size, err)
	}
	slot, err = lw.VirtualSlot(generic, over.ID)
	if err != nil || slot.Index != 0 {
		t.Fatalf("override slot = %+v, %v", slot, err)
	}

	if _, err := lw.InstanceSize(b.Int32); err == nil {
		t.Fatalf("InstanceSize of a scalar must fail")
	}
}
