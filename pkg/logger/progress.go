package logger

import (
	"sync"
	"time"
)

// StageTracker records the timing of pipeline stages for one upload so the
// final log output shows where the time went.
type StageTracker struct {
	logger    Logger
	uploadID  string
	startTime time.Time

	mutex     sync.Mutex
	current   string
	stageFrom time.Time
	durations map[string]time.Duration
	order     []string
}

// NewStageTracker creates a tracker scoped to one upload batch.
func NewStageTracker(uploadID string, log Logger) *StageTracker {
	if log == nil {
		log = GetGlobalLogger()
	}

	return &StageTracker{
		logger:    log.WithComponent("stage_tracker").WithField("upload_id", uploadID),
		uploadID:  uploadID,
		startTime: time.Now(),
		durations: make(map[string]time.Duration),
	}
}

// Enter marks the start of a pipeline stage, closing the previous one.
func (st *StageTracker) Enter(stage string) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	now := time.Now()
	st.closeCurrent(now)

	st.current = stage
	st.stageFrom = now
	st.logger.WithField("stage", stage).Debug("Entering pipeline stage")
}

// Finish closes the current stage and logs a per-stage timing summary.
func (st *StageTracker) Finish() {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	st.closeCurrent(time.Now())

	fields := Fields{"total": time.Since(st.startTime).String()}
	for _, stage := range st.order {
		fields[stage] = st.durations[stage].String()
	}
	st.logger.WithFields(fields).Info("Pipeline stage timings")
}

// Elapsed returns the time since the tracker was created.
func (st *StageTracker) Elapsed() time.Duration {
	return time.Since(st.startTime)
}

func (st *StageTracker) closeCurrent(now time.Time) {
	if st.current == "" {
		return
	}
	if _, seen := st.durations[st.current]; !seen {
		st.order = append(st.order, st.current)
	}
	st.durations[st.current] += now.Sub(st.stageFrom)
	st.current = ""
}
