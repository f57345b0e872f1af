package service

import "blogapi/internal/model"

// Target is an entity located for a request. Found is false when the lookup
// came back empty.
type Target struct {
	Name     string
	Found    bool
	AuthorID int64
}

func PostTarget(p *model.Post) Target {
	if p == nil {
		return Target{Name: "post"}
	}
	return Target{Name: "post", Found: true, AuthorID: p.AuthorID}
}

func CommentTarget(c *model.Comment) Target {
	if c == nil {
		return Target{Name: "comment"}
	}
	return Target{Name: "comment", Found: true, AuthorID: c.AuthorID}
}

// Check reports the first missing target in slice order as NotFound, then,
// if ownerKey is set, reports Forbidden unless actor authored that target.
// Calling it with an ownerKey and no actor is a programming error.
func Check(targets []Target, ownerKey string, actor *model.User) error {
	for _, t := range targets {
		if !t.Found {
			return NotFound(t.Name)
		}
	}

	if ownerKey == "" {
		return nil
	}
	if actor == nil {
		panic("service: ownership check for " + ownerKey + " without an actor")
	}

	for _, t := range targets {
		if t.Name != ownerKey {
			continue
		}
		if t.AuthorID != actor.ID {
			return Forbidden(ownerKey)
		}
		return nil
	}
	panic("service: ownership key " + ownerKey + " is not among the checked targets")
}
