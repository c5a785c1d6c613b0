package reactor

// Structured logging integration. The reactor logs through logiface,
// injected via WithLogger; with no logger installed every site below is
// a nil-safe no-op. Nothing on the dispatch hot path logs.

// logCreated records the chosen backend and capacity.
func (r *Reactor) logCreated() {
	r.logger.Debug().
		Str("backend", r.backend.name()).
		Int("setsize", r.setsize).
		Log("reactor created")
}

// logClosed records teardown, including a failed backend close (which
// may leak kernel handles).
func (r *Reactor) logClosed(err error) {
	if err != nil {
		r.logger.Err().
			Err(err).
			Log("reactor closed with backend error")
		return
	}
	r.logger.Debug().Log("reactor closed")
}

// logResized records a capacity change.
func (r *Reactor) logResized(setsize int) {
	r.logger.Debug().
		Int("setsize", setsize).
		Log("reactor resized")
}

// logPollError records a backend poll failure that was absorbed to keep
// the loop live.
func (r *Reactor) logPollError(err error) {
	r.logger.Err().
		Err(err).
		Log("backend poll failed")
}

// logUnregisterFailed records an OS refusal to drop interest; the
// file-event table is updated regardless.
func (r *Reactor) logUnregisterFailed(fd int, err error) {
	r.logger.Err().
		Int("fd", fd).
		Err(err).
		Log("backend failed to drop interest")
}
