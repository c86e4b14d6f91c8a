package domain

import "time"

type Capsule struct {
	ID                 string     `json:"id"`
	OwnerID            string     `json:"owner_id"`
	Title              string     `json:"title"`
	Message            *string    `json:"message"`
	UnlockDate         time.Time  `json:"unlock_date"`
	CreatedAt          time.Time  `json:"created_at"`
	IsGroup            bool       `json:"is_group"`
	Members            []string   `json:"group_members"`
	ReminderSentAt     *time.Time `json:"-"`
	CreatedEmailSentAt *time.Time `json:"-"`

	// Computed on every read, never persisted.
	IsUnlocked bool    `json:"is_unlocked"`
	Media      []Media `json:"media,omitempty"`
}

// UnlockedAt reports whether the capsule is open at now. The boundary instant counts as unlocked.
func (c *Capsule) UnlockedAt(now time.Time) bool {
	return !now.Before(c.UnlockDate)
}

// CanRead reports whether userID is the owner or, for group capsules, a listed member.
func (c *Capsule) CanRead(userID string) bool {
	if c.OwnerID == userID {
		return true
	}
	if !c.IsGroup {
		return false
	}
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type CreateCapsuleRequest struct {
	Title        string    `json:"title" validate:"required,min=1,max=200"`
	Message      *string   `json:"message" validate:"omitempty,max=10000"`
	UnlockDate   time.Time `json:"unlock_date" validate:"required"`
	IsGroup      bool      `json:"is_group"`
	GroupMembers []string  `json:"group_members" validate:"omitempty,dive,required"`
}

type UpdateCapsuleRequest struct {
	Title      *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Message    *string    `json:"message" validate:"omitempty,max=10000"`
	UnlockDate *time.Time `json:"unlock_date"`
}
