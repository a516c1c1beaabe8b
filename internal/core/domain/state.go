package domain

// State is the singleton configuration of the basket.
type State struct {
	Admin string
	// ContractName and ContractVersion are recorded once at instantiation.
	ContractName    string
	ContractVersion string
}

func (s State) IsAdmin(sender string) bool {
	return sender != "" && sender == s.Admin
}
