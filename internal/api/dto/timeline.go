package dto

// TimelineStatsResponse aggregates completion across the merged timeline
type TimelineStatsResponse struct {
	CompletedCount int `json:"completed_count"`
	TotalCount     int `json:"total_count"`
	Percentage     int `json:"percentage"`
}

// TimelineMessage is one frame on the timeline stream: either a merged
// snapshot, a connectivity state change, or a subscription failure notice.
type TimelineMessage struct {
	Type         string      `json:"type"` // snapshot | connectivity | error
	Timeline     interface{} `json:"timeline,omitempty"`
	Stats        interface{} `json:"stats,omitempty"`
	Connectivity interface{} `json:"connectivity,omitempty"`
	Error        string      `json:"error,omitempty"`
}
