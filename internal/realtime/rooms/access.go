package rooms

import "github.com/labpulse/labpulse/internal/platform"

// Join predicates are pure functions of the caller and the resource's owning
// organization. They mutate nothing: a rejection leaves no partial state.

func canJoin(identity *platform.Identity, resourceOrgID string) bool {
	if identity == nil {
		return false
	}
	if identity.Superuser {
		return true
	}
	return identity.OrgID != "" && identity.OrgID == resourceOrgID
}

// CanJoinDeviceRoom reports whether identity may watch a device owned by
// deviceOrgID.
func CanJoinDeviceRoom(identity *platform.Identity, deviceOrgID string) bool {
	return canJoin(identity, deviceOrgID)
}

// CanJoinExperimentRoom reports whether identity may watch an experiment
// owned by experimentOrgID.
func CanJoinExperimentRoom(identity *platform.Identity, experimentOrgID string) bool {
	return canJoin(identity, experimentOrgID)
}

// CanJoinTaskRoom reports whether identity may watch a task owned by
// taskOrgID.
func CanJoinTaskRoom(identity *platform.Identity, taskOrgID string) bool {
	return canJoin(identity, taskOrgID)
}

// CanJoinUserRoom reports whether identity may watch userID's personal room.
// Personal rooms carry private notifications, so only the user themself and
// superusers may join.
func CanJoinUserRoom(identity *platform.Identity, userID string) bool {
	if identity == nil {
		return false
	}
	if identity.Superuser {
		return true
	}
	return identity.ID != "" && identity.ID == userID
}

// CanJoinOrgRoom reports whether identity may watch the organization room.
func CanJoinOrgRoom(identity *platform.Identity, orgID string) bool {
	return canJoin(identity, orgID)
}
