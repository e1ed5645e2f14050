package appfs

import "embed"

// FS holds the SQL migrations & the email templates.
//
//go:embed migrations assets assets/templates/email/_base.txt assets/templates/email/_base.gohtml
var FS embed.FS
