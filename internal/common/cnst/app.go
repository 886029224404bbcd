package cnst

const (
	// AppName is the name of the application
	AppName = "labpulse"
	// CommandName is the name of the server command
	CommandName = "labpulse"
)
