package model

import "time"

// Trial is the one-shot free-trial state for a user. Used is monotonic:
// once true it never reverts, even after the trial expires.
type Trial struct {
	Active      bool       `json:"active"`
	ActivatedAt *time.Time `json:"activated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Used        bool       `json:"used"`
}

type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name,omitempty"`
	Trial             Trial     `json:"trial"`
	PurchasedPackages []string  `json:"purchased_packages"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Owns reports whether the user has purchased the given offering.
// Trial access is a separate concern; see entitlement.HasAccess.
func (u *User) Owns(offeringID string) bool {
	for _, id := range u.PurchasedPackages {
		if id == offeringID {
			return true
		}
	}
	return false
}

// TrialExpired reports whether an activated trial has passed its deadline.
func (u *User) TrialExpired(now time.Time) bool {
	return u.Trial.ExpiresAt != nil && now.After(*u.Trial.ExpiresAt)
}
