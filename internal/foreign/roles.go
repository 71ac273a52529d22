package foreign

// Role is the kind of entity a descriptor describes.
type Role uint8

const (
	RoleClass Role = iota
	RoleCategory
	RoleProtocol
)

// roleOps is the per-role behaviour table.
type roleOps struct {
	name string
	// ivars reports whether the role may carry instance storage.
	ivars bool
	// splitOptional keeps optional methods in separate lists.
	splitOptional bool
	// exposedOnly limits members to those marked exposed.
	exposedOnly bool
	encode      func(e *encoder, d *Descriptor) string
}

var roles = [...]roleOps{
	RoleClass: {
		name:        "class",
		ivars:       true,
		exposedOnly: true,
		encode:      (*encoder).class,
	},
	RoleCategory: {
		name:        "category",
		exposedOnly: false,
		encode:      (*encoder).category,
	},
	RoleProtocol: {
		name:          "protocol",
		splitOptional: true,
		encode:        (*encoder).protocol,
	},
}

func (r Role) ops() *roleOps {
	return &roles[r]
}

func (r Role) String() string {
	if int(r) < len(roles) {
		return roles[r].name
	}
	return "invalid"
}
