package templates

// WelcomeData holds variables for the registration welcome email.
type WelcomeData struct {
	FirstName    string
	Username     string
	LoginURL     string
	SupportEmail string
}

var Welcome = Expect[WelcomeData]("auth.welcome")

// CodeData holds variables for the emails that carry a 6-digit code.
type CodeData struct {
	FirstName     string
	Code          string
	ExpiryMinutes int
	ActionURL     string
	SupportEmail  string
}

// PasswordResetCode is sent from the forgot-password flow.
var PasswordResetCode = Expect[CodeData]("auth.password_reset_code")

// PasswordChangeCode is sent when a signed-in user asks to change their password.
var PasswordChangeCode = Expect[CodeData]("auth.password_change_code")

// PasswordChangedData holds variables for the post-change confirmation.
type PasswordChangedData struct {
	FirstName    string
	ChangedAt    string
	IPAddress    string
	SupportEmail string
}

var PasswordChanged = Expect[PasswordChangedData]("auth.password_changed")
