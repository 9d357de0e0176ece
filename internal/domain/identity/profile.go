package identity

import (
	"encoding/base64"
	"strings"
)

// Editor is the profile edit cycle: a staging copy that is either saved
// over the profile or discarded.
type Editor struct {
	Editing bool    `json:"editing"`
	Draft   Profile `json:"draft"`
}

// Start begins editing a copy of current. Starting again discards the
// previous draft.
func (e *Editor) Start(current Profile) {
	e.Editing = true
	e.Draft = current.clone()
}

// Update applies patch to the draft.
func (e *Editor) Update(patch Patch) error {
	if !e.Editing {
		return ErrNotEditing
	}
	if patch.Age != nil && (*patch.Age < 0 || *patch.Age > 150) {
		return ErrInvalidAge
	}
	if patch.Email != nil && *patch.Email != "" && !strings.Contains(*patch.Email, "@") {
		return ErrInvalidEmail
	}
	d := e.Draft
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Email != nil {
		d.Email = *patch.Email
	}
	if patch.Phone != nil {
		d.Phone = *patch.Phone
	}
	if patch.Age != nil {
		d.Age = *patch.Age
	}
	if patch.NextCheckup != nil {
		if *patch.NextCheckup == "" {
			d.NextCheckup = nil
		} else {
			v := *patch.NextCheckup
			d.NextCheckup = &v
		}
	}
	e.Draft = d
	return nil
}

// Save ends editing and returns the draft as the new profile.
func (e *Editor) Save() (Profile, error) {
	if !e.Editing {
		return Profile{}, ErrNotEditing
	}
	saved := e.Draft.clone()
	e.Editing = false
	e.Draft = Profile{}
	return saved, nil
}

// Cancel discards the draft.
func (e *Editor) Cancel() {
	e.Editing = false
	e.Draft = Profile{}
}

// SetImage sets the profile picture on both the profile and, while
// editing, the draft.
func (e *Editor) SetImage(p Profile, dataURL string) Profile {
	p = p.clone()
	p.ProfileImage = dataURL
	if e.Editing {
		e.Draft.ProfileImage = dataURL
	}
	return p
}

// ImageDataURL encodes an uploaded picture as a data URL.
func ImageDataURL(contentType string, data []byte) (string, error) {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ApplySignUp copies the name and email entered at sign-up into the
// profile. Blank values keep the existing ones.
func ApplySignUp(p Profile, name, email string) Profile {
	p = p.clone()
	if name = strings.TrimSpace(name); name != "" {
		p.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		p.Email = email
	}
	return p
}
