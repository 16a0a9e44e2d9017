package jobs

import "fmt"

// ValidatePayload enforces the required identifiers per job type before a job
// is enqueued.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	switch t {
	case JobWelcomeEmail:
		p, ok := payload.(WelcomeEmailPayload)

		if !ok {
			pp, ok2 := payload.(*WelcomeEmailPayload)

			if !ok2 {
				return ErrPayloadTypeMismatch
			}
			p = *pp
		}

		if p.UserID == "" || p.Email == "" {
			return fmt.Errorf("%w: userId and email are required", ErrInvalidJobPayload)
		}

	case JobAccountDeleted:
		p, ok := payload.(AccountDeletedPayload)

		if !ok {
			pp, ok2 := payload.(*AccountDeletedPayload)

			if !ok2 {
				return ErrPayloadTypeMismatch
			}
			p = *pp
		}

		if p.UserID == "" || p.Email == "" {
			return fmt.Errorf("%w: userId and email are required", ErrInvalidJobPayload)
		}
	}

	return nil
}
