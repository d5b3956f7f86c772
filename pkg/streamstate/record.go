package streamstate

// StreamStatus is the lifecycle state of a generation stream. A stream starts
// active and transitions once to completed or error; it never reverts.
type StreamStatus string

const (
	StatusActive    StreamStatus = "active"
	StatusCompleted StreamStatus = "completed"
	StatusError     StreamStatus = "error"
)

// Terminal reports whether the status is one a stream cannot leave.
func (s StreamStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// OwnerKey identifies a single logical stream: one generation module of one job.
type OwnerKey struct {
	JobID  string
	Module string
}

func (k OwnerKey) String() string {
	return k.JobID + ":" + k.Module
}

// StreamRecord is the registry entry for an in-flight generation stream.
type StreamRecord struct {
	StreamID  string       `json:"stream_id"`
	UserID    string       `json:"user_id"`
	Status    StreamStatus `json:"status"`
	CreatedAt int64        `json:"created_at"`
}

const (
	recordKeyPrefix  = "stream:record:"
	contentKeyPrefix = "stream:content:"
)

func recordKey(k OwnerKey) string {
	return recordKeyPrefix + k.String()
}

func contentKey(k OwnerKey) string {
	return contentKeyPrefix + k.String()
}

func jobRecordPrefix(jobID string) string {
	return recordKeyPrefix + jobID + ":"
}
