package emotion

// ContinuityTracker remembers which learning module was active when calming started.
type ContinuityTracker struct {
	pending int
}

// Capture records moduleID as the module to resume. Non-positive ids mean "no module".
func (ct *ContinuityTracker) Capture(moduleID int) {
	if moduleID < 0 {
		moduleID = 0
	}
	ct.pending = moduleID
}

// Pending returns the captured module without clearing it.
func (ct *ContinuityTracker) Pending() (int, bool) {
	return ct.pending, ct.pending > 0
}

// Take returns the captured module and clears it.
func (ct *ContinuityTracker) Take() (int, bool) {
	id, ok := ct.Pending()
	ct.pending = 0
	return id, ok
}
