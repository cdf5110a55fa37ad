package planner

// ReviewOffsets are the spaced-repetition gaps, in days, after a topic is learned.
var ReviewOffsets = []int{1, 3, 7, 14, 30}

// ReviewEntry is a topic waiting for review. Presence in the queue is the only due signal.
type ReviewEntry struct {
	Subject string
	Topic   string
}

// DuePolicy picks which queued entry a review slot consumes, returning false when none is due.
type DuePolicy func(queue []ReviewEntry) (int, bool)

// FIFODue serves the head of the queue regardless of how many days have passed.
func FIFODue(queue []ReviewEntry) (int, bool) {
	if len(queue) == 0 {
		return 0, false
	}
	return 0, true
}

// ReviewScheduler holds one FIFO review queue per subject for a single generation.
type ReviewScheduler struct {
	queues map[string][]ReviewEntry
	due    DuePolicy
}

// NewReviewScheduler creates empty queues for the given subjects. A nil policy means FIFODue.
func NewReviewScheduler(subjects []string, policy DuePolicy) *ReviewScheduler {
	if policy == nil {
		policy = FIFODue
	}
	queues := make(map[string][]ReviewEntry, len(subjects))
	for _, subject := range subjects {
		queues[subject] = nil
	}
	return &ReviewScheduler{queues: queues, due: policy}
}

// Learned enqueues one review per offset that still lands inside the plan horizon.
// It returns how many entries were added (0 to len(ReviewOffsets)).
func (r *ReviewScheduler) Learned(subject, topic string, day, horizon int) int {
	added := 0
	for _, offset := range ReviewOffsets {
		if day+offset > horizon {
			continue
		}
		r.queues[subject] = append(r.queues[subject], ReviewEntry{Subject: subject, Topic: topic})
		added++
	}
	return added
}

// Next dequeues the topic selected by the due policy.
func (r *ReviewScheduler) Next(subject string) (string, bool) {
	queue := r.queues[subject]
	idx, ok := r.due(queue)
	if !ok || idx < 0 || idx >= len(queue) {
		return "", false
	}
	entry := queue[idx]
	r.queues[subject] = append(queue[:idx:idx], queue[idx+1:]...)
	return entry.Topic, true
}

// Pending reports how many reviews are queued for a subject.
func (r *ReviewScheduler) Pending(subject string) int {
	return len(r.queues[subject])
}
