package core

// ViewerID identifies one local UI connection.
type ViewerID string

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []ViewerID
}

// ViewerHub fans session events out to local UI connections.
// It owns the viewer set but never touches transport resources.
type ViewerHub interface {
	Count() int
	Add(id ViewerID, conn SignalConnection)
	Remove(id ViewerID)
	Get(id ViewerID) (SignalConnection, bool)
	Broadcast(data Frame) PublishResult
}
