package flags

import "github.com/dardanova/dardanova/internal/config"

var (
	ListenHost = config.GenFlag[string]("server.listen.host", "localhost", "Host to listen to")
	ListenPort = config.GenFlag[int]("server.listen.port", 8070, "Port to listen on")

	SecureCookies = config.GenFlag("server.secure_cookies", false, "Mark session cookies as Secure (enable when served over HTTPS)")
)

// DB
var (
	MigrateOnStart = config.GenFlag("behavior.db.run_migrations", true, "Run PostgreSQL migrations on platform start")
)

var (
	NavbarBranding = config.GenFlag("frontend.navbar.branding", "Dardanova", "Branding in navbar")
)

var (
	ContactRateLimit = config.GenFlag("feature.contact.rate_limit", 5, "Maximum number of contact messages from one IP in 10 minutes")

	ContactSubjectPrefix = config.GenFlag("admin.mailer.contact_subject", "Yeni İletişim Formu Mesajı", "Subject prefix of forwarded contact messages")
)
