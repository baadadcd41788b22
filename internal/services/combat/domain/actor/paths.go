package actor

// Track names.
const (
	TrackPhysical = "physical"
	TrackStun     = "stun"
	TrackMatrix   = "matrix"
	TrackOverflow = "overflow"
)

// Document paths written by combat rules.
const (
	PathEdgeUses         = "edge.uses"
	PathActionsMajor     = "actions.major"
	PathActionsMinor     = "actions.minor"
	PathActionsFree      = "actions.free"
	PathActionsRound     = "actions.round"
	PathRoundEdgeGained  = "round.edge_gained"
	PathMultiDefense     = "modifiers.multi_defense"
	PathRecoil           = "modifiers.recoil"
	PathStatuses         = "statuses"
	PathPhysicalOverflow = "track.physical.overflow.value"
)

// TrackValuePath returns the document path of a track's value.
func TrackValuePath(track string) string {
	if track == TrackOverflow {
		return PathPhysicalOverflow
	}
	return "track." + track + ".value"
}
