package identity

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func seedProfile() Profile {
	return Profile{
		Name:        "Sarah Johnson",
		Email:       "sarah.j@example.com",
		Phone:       "+1 (555) 123-4567",
		Age:         28,
		NextCheckup: strPtr("2024-06-15"),
	}
}

func TestEditor_SaveCycle(t *testing.T) {
	var e Editor
	p := seedProfile()
	e.Start(p)
	if err := e.Update(Patch{Name: strPtr("Sarah J."), Age: intPtr(29)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Sarah Johnson" {
		t.Error("profile changed before save")
	}
	saved, err := e.Save()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Name != "Sarah J." || saved.Age != 29 || saved.Email != p.Email {
		t.Errorf("unexpected saved profile: %+v", saved)
	}
	if e.Editing {
		t.Error("expected editing to end after save")
	}
}

func TestEditor_CancelDiscards(t *testing.T) {
	var e Editor
	e.Start(seedProfile())
	_ = e.Update(Patch{Phone: strPtr("000")})
	e.Cancel()
	if _, err := e.Save(); !errors.Is(err, ErrNotEditing) {
		t.Errorf("expected ErrNotEditing, got %v", err)
	}
	if err := e.Update(Patch{Phone: strPtr("111")}); !errors.Is(err, ErrNotEditing) {
		t.Errorf("expected ErrNotEditing, got %v", err)
	}
}

func TestEditor_DraftIsIsolated(t *testing.T) {
	var e Editor
	p := seedProfile()
	e.Start(p)
	_ = e.Update(Patch{NextCheckup: strPtr("2024-07-01")})
	if *p.NextCheckup != "2024-06-15" {
		t.Error("draft shares next checkup with profile")
	}
	_ = e.Update(Patch{NextCheckup: strPtr("")})
	if e.Draft.NextCheckup != nil {
		t.Error("expected next checkup cleared")
	}
}

func TestEditor_Validation(t *testing.T) {
	var e Editor
	e.Start(seedProfile())
	if err := e.Update(Patch{Age: intPtr(-1)}); !errors.Is(err, ErrInvalidAge) {
		t.Errorf("expected ErrInvalidAge, got %v", err)
	}
	if err := e.Update(Patch{Email: strPtr("nope")}); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if e.Draft.Age != 28 {
		t.Error("rejected patch changed the draft")
	}
}

func TestEditor_SetImage(t *testing.T) {
	var e Editor
	p := seedProfile()
	e.Start(p)
	url, err := ImageDataURL("image/png; charset=binary", []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "data:image/png;base64,iVBORw==" {
		t.Errorf("unexpected data url %q", url)
	}
	p = e.SetImage(p, url)
	if p.ProfileImage != url || e.Draft.ProfileImage != url {
		t.Error("expected image on both profile and draft")
	}
	if _, err := ImageDataURL("text/plain", nil); !errors.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage, got %v", err)
	}
}

func TestApplySignUp(t *testing.T) {
	p := ApplySignUp(seedProfile(), "Alex Kim", "")
	if p.Name != "Alex Kim" || p.Email != "sarah.j@example.com" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestPreferences(t *testing.T) {
	p := DefaultPreferences()
	if !p.PushEnabled || p.Premium {
		t.Errorf("unexpected defaults: %+v", p)
	}
	p = p.TogglePush().UpgradePremium()
	if p.PushEnabled || !p.Premium {
		t.Errorf("unexpected preferences: %+v", p)
	}
}
