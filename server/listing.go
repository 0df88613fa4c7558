package server

import (
	"fmt"
	"os"
	"time"
)

// formatListEntry renders one os.FileInfo as an "ls -l"-compatible line:
// mode string, link count, owner, group, size, mtime, name. The core
// never shells out to ls; this is the whole listing logic.
//
// Owner/group are not modeled by afero's FileInfo across backends, so
// both are rendered as "ftp" — acceptable for an anonymous, single-class
// server where no client distinguishes real uid/gid names anyway.
func formatListEntry(info os.FileInfo) string {
	return fmt.Sprintf("%s 1 ftp ftp %12d %s %s",
		info.Mode().String(),
		info.Size(),
		formatListTime(info.ModTime()),
		info.Name(),
	)
}

// formatListTime mimics ls's mtime rendering: "Mon DD hh:mm" for times
// within the last six months, "Mon DD  YYYY" otherwise.
func formatListTime(t time.Time) string {
	if time.Since(t) > 183*24*time.Hour || time.Since(t) < 0 {
		return t.Format("Jan _2  2006")
	}
	return t.Format("Jan _2 15:04")
}
