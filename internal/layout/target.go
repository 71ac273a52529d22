package layout

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-unknown-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-unknown-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

func ARM64AppleDarwin() Target {
	return Target{
		Triple:   "arm64-apple-darwin",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

func I386AppleDarwin() Target {
	return Target{
		Triple:   "i386-apple-darwin",
		PtrSize:  4,
		PtrAlign: 4,
	}
}

func Wasm32() Target {
	return Target{
		Triple:   "wasm32-unknown-unknown",
		PtrSize:  4,
		PtrAlign: 4,
	}
}

// TargetByName resolves the short names accepted by manifests and flags.
func TargetByName(name string) (Target, bool) {
	switch name {
	case "", "x86_64", "x86_64-linux":
		return X86_64LinuxGNU(), true
	case "arm64", "aarch64":
		return ARM64AppleDarwin(), true
	case "i386", "x86":
		return I386AppleDarwin(), true
	case "wasm32":
		return Wasm32(), true
	}
	return Target{}, false
}

// Is64Bit reports whether pointers are eight bytes wide.
func (t Target) Is64Bit() bool {
	return t.PtrSize == 8
}

// MaxAlign is the strictest alignment any type has on the target.
func (t Target) MaxAlign() int {
	return max(t.PtrAlign, 8)
}

// MaxObjectSize bounds any single type's size on the target.
func (t Target) MaxObjectSize() int64 {
	if t.Is64Bit() {
		return 1 << 47
	}
	return 1<<31 - 1
}
