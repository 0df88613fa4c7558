package server

// Predefined command groups for use with WithDisableCommands.
//
// Example usage:
//
//	// Create a read-only server
//	srv, _ := server.NewServer(":21",
//	    server.WithDriver(driver),
//	    server.WithDisableCommands(server.WriteCommands...),
//	)
var (
	// LegacyCommands contains deprecated X* command variants from RFC 775.
	LegacyCommands = []string{"XCWD", "XCUP", "XPWD", "XMKD", "XRMD"}

	// WriteCommands contains all commands that modify the filesystem.
	//
	// Note: for per-user read-only access, prefer the FSDriver
	// authenticator's readOnly return value instead.
	WriteCommands = []string{"STOR", "DELE", "RMD", "XRMD", "MKD", "XMKD", "RNFR", "RNTO", "MFMT", "SITE"}

	// SiteCommands contains SITE administrative commands.
	SiteCommands = []string{"SITE"}
)
