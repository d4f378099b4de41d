package queue

// routing keys
const (
	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
	KeyPasswordReset  = "user.password_reset"
	KeyMailSend       = "mail.send"
)

type UserRegistered struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Origin string `json:"origin"`
}

type UserLoggedIn struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Method string `json:"method"` // local | google | github | facebook
}

type PasswordReset struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// MailJob is consumed by the notifier and delivered over SMTP.
type MailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
