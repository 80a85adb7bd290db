package ldap

// State records which stages of an authentication attempt ran and how
// they ended. A nil field means the stage was never reached.
type State struct {
	Bind             *bool `json:"bind,omitempty"`
	SearchUser       *bool `json:"searchUser,omitempty"`
	AuthenticateUser *bool `json:"authenticateUser,omitempty"`

	err error
}

func (s *State) setBind(ok bool)             { s.Bind = &ok }
func (s *State) setSearchUser(ok bool)       { s.SearchUser = &ok }
func (s *State) setAuthenticateUser(ok bool) { s.AuthenticateUser = &ok }

// capture keeps the error of the stage that ended the attempt.
func (s *State) capture(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Err returns the captured stage error, nil on a clean run.
func (s *State) Err() error { return s.err }
