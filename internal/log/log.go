package log

const (
	// FldFile is the name of the log field for storing file name information
	FldFile = "file"
	// FldPath is the name of the log field for storing path name information
	FldPath = "path"
	// FldTransport is the name of the log field for storing a transport name
	FldTransport = "transport"
	// FldSession is the name of the log field for storing the session ID
	FldSession = "session"
	// FldUser is the name of the log field for storing the ID of the currently active user
	FldUser = "user"
	// FldVersion is the version number of the application
	FldVersion = "ver"
	// FldID is the ID of an entity used in the log entry
	FldID = "id"
	// FldEvent is the ID of the event an operation works on
	FldEvent = "event"
	// FldParticipant is the display name of the participant an operation works on
	FldParticipant = "participant"
	// FldSearch is a search term used in a search
	FldSearch = "search"
	// FldOffset is the requested offset value in a search
	FldOffset = "offset"
	// FldLimit is the requested result limit in a search
	FldLimit = "limit"
)
