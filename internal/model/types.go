package model

import "time"

// Activity is a single recorded unit of work on the factory floor.
//
// Day is the calendar day the operator attributed the work to, stored as a
// zero-time-of-day instant. Start/End are the precise work span; End may fall
// on the following day when the activity crosses midnight. DurationMinutes is
// the operator-declared duration and may disagree with End-Start.
type Activity struct {
	ActivityID      string     `json:"activityId"`
	OperatorID      string     `json:"operatorId"`
	Day             time.Time  `json:"day"`
	Start           *time.Time `json:"start,omitempty"`
	End             *time.Time `json:"end,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	JornadaID       string     `json:"jornadaId,omitempty"`

	// Classification fields, opaque to the jornada subsystem.
	WorkOrder string   `json:"workOrder,omitempty"`
	Process   string   `json:"process,omitempty"`
	Machine   string   `json:"machine,omitempty"`
	Area      string   `json:"area,omitempty"`
	Supplies  []string `json:"supplies,omitempty"`

	CreationTime time.Time `json:"creationTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// Jornada aggregates one operator's activities for one calendar day.
//
// The derived fields (RangeStart through MergedIntervalCount) are owned by the
// jornada and recomputed from the activity set; callers never set them
// directly. Revision implements optimistic concurrency: updates must present
// the revision they read.
type Jornada struct {
	JornadaID   string    `json:"jornadaId"`
	OperatorID  string    `json:"operatorId"`
	Day         time.Time `json:"day"`
	ActivityIDs []string  `json:"activityIds"`

	RangeStart          *time.Time `json:"rangeStart,omitempty"`
	RangeEnd            *time.Time `json:"rangeEnd,omitempty"`
	EffectiveMinutes    int        `json:"effectiveMinutes"`
	RawSumMinutes       int        `json:"rawSumMinutes"`
	RangeMinutes        int        `json:"rangeMinutes"`
	HasOverlap          bool       `json:"hasOverlap"`
	MergedIntervalCount int        `json:"mergedIntervalCount"`

	Revision     int64     `json:"revision"`
	CreationTime time.Time `json:"creationTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// HasActivity reports whether the jornada's set references the given id.
func (j *Jornada) HasActivity(activityID string) bool {
	for _, id := range j.ActivityIDs {
		if id == activityID {
			return true
		}
	}
	return false
}

// ReconcileIssue records a single activity the repair pass could not resolve.
type ReconcileIssue struct {
	ActivityID  string `json:"activityId"`
	JornadaID   string `json:"jornadaId,omitempty"`
	ActivityDay string `json:"activityDay,omitempty"`
	JornadaDay  string `json:"jornadaDay,omitempty"`
	Reason      string `json:"reason"`
}

// ReconcileReport summarizes a repair pass over the jornada invariants.
type ReconcileReport struct {
	JornadasScanned    int              `json:"jornadasScanned"`
	ActivitiesScanned  int              `json:"activitiesScanned"`
	MismatchesFound    int              `json:"mismatchesFound"`
	MismatchesResolved int              `json:"mismatchesResolved"`
	DanglingDropped    int              `json:"danglingDropped"`
	OrphansAdopted     int              `json:"orphansAdopted"`
	DuplicatesMerged   int              `json:"duplicatesMerged"`
	JornadasDeleted    int              `json:"jornadasDeleted"`
	Unresolved         []ReconcileIssue `json:"unresolved,omitempty"`
	StartedAt          time.Time        `json:"startedAt"`
	FinishedAt         time.Time        `json:"finishedAt"`
}
