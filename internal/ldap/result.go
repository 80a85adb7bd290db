package ldap

// Status classifies the outcome of an authentication attempt.
type Status int

const (
	// StatusNotFound means the user could not be looked up, because the
	// directory was unreachable, the service bind failed or no entry
	// matched the username.
	StatusNotFound Status = iota
	// StatusFailed means the user exists but their password could not be
	// verified.
	StatusFailed
	// StatusSuccess means the directory accepted the user's credentials.
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "not_found"
	}
}

// GroupChannels reports how many names each resolution channel
// contributed before the merge. The merged set is deduplicated, so the
// sum can exceed len(Groups).
type GroupChannels struct {
	// Entry counts names taken from the group attribute of the user's
	// own entry.
	Entry int
	// Search counts names found by the group search.
	Search int
}

// Result is the complete outcome of one authentication attempt. User and
// Groups are only set on success, State is always set.
type Result struct {
	Status        Status
	User          *DirectoryUser
	Groups        []string
	GroupChannels GroupChannels
	State         *State
}
