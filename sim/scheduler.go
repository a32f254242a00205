package sim

// Phase is one of the ordered callback lists run around each engine step.
type Phase int

const (
	PreStep Phase = iota
	PreTransformSync
	PostTransformSync
	PostStep
	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PreStep:
		return "PreStep"
	case PreTransformSync:
		return "PreTransformSync"
	case PostTransformSync:
		return "PostTransformSync"
	case PostStep:
		return "PostStep"
	default:
		return "Unknown"
	}
}

// Phases lists every phase in execution order.
func Phases() []Phase {
	return []Phase{PreStep, PreTransformSync, PostTransformSync, PostStep}
}

// Callback receives the fixed tick length in seconds.
type Callback func(dt float64)

// CallbackID identifies a registration; zero is never issued.
type CallbackID uint64

type registration struct {
	id      CallbackID
	owner   any
	fn      Callback
	removed bool
}

// Scheduler holds the per-phase callback lists. Callbacks run in
// registration order. Removing a callback while a phase is running is safe:
// the entry is tombstoned and compacted once no phase is running. Callbacks
// added while a phase runs first execute on the next run of that phase.
type Scheduler struct {
	phases  [phaseCount][]*registration
	nextID  CallbackID
	running int
	dirty   bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add registers fn in phase on behalf of owner. Owner may be nil; when set
// it must be comparable and lets RemoveOwner drop every callback it added.
func (s *Scheduler) Add(phase Phase, owner any, fn Callback) CallbackID {
	if s == nil || fn == nil || phase < 0 || phase >= phaseCount {
		return 0
	}
	s.nextID++
	s.phases[phase] = append(s.phases[phase], &registration{id: s.nextID, owner: owner, fn: fn})
	return s.nextID
}

// Remove drops a single registration.
func (s *Scheduler) Remove(id CallbackID) bool {
	if s == nil || id == 0 {
		return false
	}
	for p := range s.phases {
		for _, reg := range s.phases[p] {
			if reg.id == id && !reg.removed {
				s.drop(reg)
				s.compact()
				return true
			}
		}
	}
	return false
}

// RemoveOwner drops every registration made by owner and returns how many.
func (s *Scheduler) RemoveOwner(owner any) int {
	if s == nil || owner == nil {
		return 0
	}
	n := 0
	for p := range s.phases {
		for _, reg := range s.phases[p] {
			if !reg.removed && reg.owner == owner {
				s.drop(reg)
				n++
			}
		}
	}
	s.compact()
	return n
}

// Len reports the live registrations in phase.
func (s *Scheduler) Len(phase Phase) int {
	if s == nil || phase < 0 || phase >= phaseCount {
		return 0
	}
	n := 0
	for _, reg := range s.phases[phase] {
		if !reg.removed {
			n++
		}
	}
	return n
}

// Run invokes every live callback of phase once.
func (s *Scheduler) Run(phase Phase, dt float64) {
	if s == nil || phase < 0 || phase >= phaseCount {
		return
	}
	s.running++
	defer func() {
		s.running--
		s.compact()
	}()

	n := len(s.phases[phase])
	for i := 0; i < n; i++ {
		reg := s.phases[phase][i]
		if reg.removed {
			continue
		}
		reg.fn(dt)
	}
}

// Clear drops every registration.
func (s *Scheduler) Clear() {
	if s == nil {
		return
	}
	for p := range s.phases {
		for _, reg := range s.phases[p] {
			s.drop(reg)
		}
	}
	s.compact()
}

func (s *Scheduler) drop(reg *registration) {
	reg.removed = true
	reg.fn = nil
	s.dirty = true
}

func (s *Scheduler) compact() {
	if s.running > 0 || !s.dirty {
		return
	}
	for p := range s.phases {
		kept := s.phases[p][:0]
		for _, reg := range s.phases[p] {
			if !reg.removed {
				kept = append(kept, reg)
			}
		}
		for i := len(kept); i < len(s.phases[p]); i++ {
			s.phases[p][i] = nil
		}
		s.phases[p] = kept
	}
	s.dirty = false
}
