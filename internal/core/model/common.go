package model

// Timeline entry types
const (
	EntryAction  = "ACTION"
	EntryNetwork = "NETWORK"
)

// Action types recorded by the DOM listeners
const (
	ActionClick  = "click"
	ActionChange = "change"
)

// Submission results
const (
	ResultPass = "PASS"
	ResultFail = "FAIL"
)

const (
	// UnknownAction is the title given to actions recorded without one.
	UnknownAction = "Unknown Action"
	// UnknownCase is the case id used when a session is submitted without a selected case.
	UnknownCase = "UNKNOWN"
)
