package types

// ParamInfo stores metadata about a generic type parameter.
type ParamInfo struct {
	Name  string
	Owner TypeID
	Index int
}

// RegisterGenericParam allocates the parameter type for owner's index-th
// generic parameter.
func (in *Interner) RegisterGenericParam(owner TypeID, index int, name string) TypeID {
	in.params = append(in.params, ParamInfo{Name: name, Owner: owner, Index: index})
	return in.internRaw(Type{
		Kind:    KindGenericParam,
		Count:   uint32(owner),
		Payload: slotOf(len(in.params)-1, "generic param"),
	})
}

// GenericParam returns metadata for the provided generic parameter.
func (in *Interner) GenericParam(id TypeID) (ParamInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindGenericParam || tt.Payload == 0 || int(tt.Payload) >= len(in.params) {
		return ParamInfo{}, false
	}
	return in.params[tt.Payload], true
}
