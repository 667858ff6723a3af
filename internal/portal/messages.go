package portal

// Translation keys of the messages the controller raises.
const (
	msgOffline        = "error.offline"
	msgGeneric        = "error.generic"
	msgInvalidInput   = "error.invalid_input"
	msgNotFound       = "error.not_found"
	msgSessionExpired = "session.expired"
	msgAccountGone    = "account.error.gone"

	msgLoginWelcome     = "login.welcome"
	msgLoginInvalid     = "login.error.invalid_input"
	msgLoginCredentials = "login.error.credentials"
	msgLoginSynthesized = "login.degraded"

	msgSignupSuccess    = "signup.success"
	msgSignupEmailTaken = "signup.error.email_taken"

	msgResetInvalidLink = "reset.error.invalid_link"
	msgResetSuccess     = "reset.success"

	msgEmailInvalidLink      = "email.error.invalid_link"
	msgEmailAlreadyConfirmed = "email.error.already_confirmed"

	msgAccountUpdated = "account.updated"
	msgAccountDeleted = "account.deleted"

	msgModerationUserApproved = "moderation.user.approved"
	msgModerationUserRejected = "moderation.user.rejected"
	msgModerationFormApproved = "moderation.form.approved"
	msgModerationFormRejected = "moderation.form.rejected"

	msgContributeSuccess = "contribute.success"
)
