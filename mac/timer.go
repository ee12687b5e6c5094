package mac

// ttiTimer counts down in TTIs. A non-positive duration means the timer never runs.
type ttiTimer struct {
	duration  int
	remaining int
	running   bool
}

func (t *ttiTimer) Set(duration int) {
	t.duration = duration
}

func (t *ttiTimer) Start() {
	if t.duration <= 0 {
		t.running = false
		return
	}
	t.remaining = t.duration
	t.running = true
}

func (t *ttiTimer) Stop() {
	t.running = false
}

// Step advances one TTI and reports whether the timer expired on this step.
func (t *ttiTimer) Step() bool {
	if !t.running {
		return false
	}
	t.remaining--
	if t.remaining <= 0 {
		t.running = false
		return true
	}
	return false
}

func (t *ttiTimer) IsRunning() bool {
	return t.running
}

func (t *ttiTimer) Remaining() int {
	if !t.running {
		return 0
	}
	return t.remaining
}
