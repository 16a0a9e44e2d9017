package jobs

type JobType string

const (
	JobWelcomeEmail   JobType = "welcome_email"
	JobAccountDeleted JobType = "account_deleted"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobWelcomeEmail, JobAccountDeleted:
		return true
	default:
		return false
	}
}
