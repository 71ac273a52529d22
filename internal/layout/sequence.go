package layout

// sequencer appends elements one after another, tracking the sticky
// object arrangement.
type sequencer struct {
	target Target
	offset int
	align  int
	object ObjectArrangement
	class  SizeClass
	pod    bool
	// pin gives the first dynamically sized element a constant offset.
	pin bool
	// nominal stays true while every appended size is known, so offsets can
	// still be computed nominally even if they are not constants.
	nominal bool
}

func newSequencer(target Target, start, align int, object ObjectArrangement) *sequencer {
	return &sequencer{
		target:  target,
		offset:  start,
		align:   max(align, 1),
		object:  object,
		pod:     true,
		nominal: true,
	}
}

// place appends one element described by info.
func (s *sequencer) place(info typeInfo) Element {
	el := Element{SizeClass: info.class, POD: info.pod}
	if info.class == Fixed {
		el.Kind = ElementFixed
		el.Size = info.size
		el.Align = info.align
	} else {
		el.Kind = ElementNonFixed
	}

	switch {
	case !s.object.Runtime() && info.class == Fixed:
		el.Offset = roundUp(s.offset, info.align)
		el.OffsetKnown = true
		s.offset = el.Offset + info.size
		s.align = max(s.align, info.align)
	case !s.object.Runtime() && s.pin:
		// Aligned for any instantiation, so every one agrees on it.
		el.Offset = roundUp(s.offset, s.target.MaxAlign())
		el.OffsetKnown = true
		s.nominal = false
	case s.nominal && info.class == Fixed:
		el.Offset = roundUp(s.offset, info.align)
		s.offset = el.Offset + info.size
		s.align = max(s.align, info.align)
	default:
		s.nominal = false
	}

	s.object = max(s.object, arrangementFor(info.class))
	s.class = max(s.class, info.class)
	s.pod = s.pod && info.pod
	return el
}

// placePinned places a fixed element at the offset a generic declaration
// fixed for all its instantiations.
func (s *sequencer) placePinned(info typeInfo, offset int) Element {
	if !s.object.Runtime() && info.class == Fixed {
		s.offset = max(s.offset, offset)
	}
	return s.place(info)
}

// end is the rounded aggregate size; meaningful while nominal.
func (s *sequencer) end() int {
	return roundUp(s.offset, s.align)
}
