package scheduler

import "rsvpbot/src-server/model"

// DeletePolicy decides whether actorID may delete e. admin is the caller's
// own privilege check (e.g. the guild's Manage Messages permission).
type DeletePolicy func(e model.Event, actorID string, admin bool) bool

// OwnerOnly lets only the creator delete.
func OwnerOnly() DeletePolicy {
	return func(e model.Event, actorID string, _ bool) bool {
		return actorID != "" && actorID == e.OwnerID
	}
}

// OwnerOrAdmin additionally lets privileged actors delete.
func OwnerOrAdmin() DeletePolicy {
	return func(e model.Event, actorID string, admin bool) bool {
		return admin || (actorID != "" && actorID == e.OwnerID)
	}
}

// PolicyFromFlag maps the ADMIN_DELETE setting to a policy.
func PolicyFromFlag(adminDelete bool) DeletePolicy {
	if adminDelete {
		return OwnerOrAdmin()
	}
	return OwnerOnly()
}
