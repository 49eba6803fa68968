package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
)

var (
	ErrTooLate          = errors.New("too late to change this appointment")
	ErrRoleNotPermitted = errors.New("role may not change appointments")
)

type policyFunc func(start, now time.Time, minHours int) error

// changePolicies decides, per actor role, whether an appointment starting at
// start may still be cancelled or rescheduled at now.
var changePolicies = map[auth.Role]policyFunc{
	auth.RoleClient:       requireNotice,
	auth.RoleGroomerOwner: allowAny,
	auth.RoleGroomerStaff: allowAny,
	auth.RoleAdmin:        allowAny,
}

// Authorize applies the cancel/reschedule policy of role.
func Authorize(role auth.Role, start, now time.Time, minHoursBeforeChange int) error {
	policy, ok := changePolicies[role]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoleNotPermitted, role)
	}
	return policy(start, now, minHoursBeforeChange)
}

func requireNotice(start, now time.Time, minHours int) error {
	hoursUntilStart := start.Sub(now).Hours()
	if hoursUntilStart < float64(minHours) {
		return fmt.Errorf("%w: changes require %d hours notice, %.1f hours remain", ErrTooLate, minHours, hoursUntilStart)
	}
	return nil
}

func allowAny(time.Time, time.Time, int) error {
	return nil
}
