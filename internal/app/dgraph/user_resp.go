package dgraph

// UserResp represent customer struct returned by dgraph
type UserResp struct {
	Name  string     `json:"n,omitempty"`
	Links []UserResp `json:"l,omitempty"`

	// facet of every link, keyed by the link index. Stored as a fixed point string
	// so cents survive the round trip.
	Point map[string]string `json:"l|v,omitempty"`
}

// Walk recursively do fn to every user in user tree.
func (u UserResp) Walk(us []UserResp, depth int, fn func(u UserResp, depth int)) {
	for _, u := range us {
		fn(u, depth)
		if len(u.Links) > 0 {
			nextDepth := depth + 1
			u.Walk(u.Links, nextDepth, fn)
		}
	}
}
