package identity

import "errors"

var (
	ErrNotEditing   = errors.New("profile is not being edited")
	ErrInvalidAge   = errors.New("age must be between 0 and 150")
	ErrNotImage     = errors.New("profile image must be an image")
	ErrInvalidEmail = errors.New("email must contain @")
)

// Profile is the signed-in patient's personal information.
type Profile struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Age          int     `json:"age"`
	ProfileImage string  `json:"profileImage,omitempty"`
	NextCheckup  *string `json:"nextCheckup"`
}

func (p Profile) clone() Profile {
	if p.NextCheckup != nil {
		v := *p.NextCheckup
		p.NextCheckup = &v
	}
	return p
}

// Patch carries the draft fields a client wants to change. Nil fields are
// left as they are.
type Patch struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Age         *int    `json:"age"`
	NextCheckup *string `json:"nextCheckup"`
}

// Preferences are the account settings toggled from the profile screen.
type Preferences struct {
	PushEnabled bool `json:"pushEnabled"`
	Premium     bool `json:"premium"`
}

// DefaultPreferences returns the settings of a new account.
func DefaultPreferences() Preferences {
	return Preferences{PushEnabled: true}
}

// TogglePush flips push notifications on or off.
func (p Preferences) TogglePush() Preferences {
	p.PushEnabled = !p.PushEnabled
	return p
}

// UpgradePremium activates the premium membership. Payment is simulated
// and always succeeds.
func (p Preferences) UpgradePremium() Preferences {
	p.Premium = true
	return p
}
