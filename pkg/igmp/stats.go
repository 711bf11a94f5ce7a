package igmp

// Stats counts protocol events. The engine updates its counters atomically
// from the processing context; Engine.Stats and the metrics collectors read
// them from any goroutine.
type Stats struct {
	// QueriesReceived counts membership queries seen, general or
	// group-specific.
	QueriesReceived uint64

	// ReportsReceived counts v1/v2/v3 membership reports seen from other
	// hosts.
	ReportsReceived uint64

	// ReportsSent counts membership reports transmitted.
	ReportsSent uint64

	// SendsSkipped counts report cycles lost to frame buffer exhaustion.
	SendsSkipped uint64

	// FramesDiscarded counts inbound frames dropped as short or malformed.
	FramesDiscarded uint64

	// GroupsJoined counts socket join operations that took effect.
	GroupsJoined uint64

	// GroupsLeft counts socket leave operations that took effect.
	GroupsLeft uint64
}
