package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, target string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "/")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor(t, "/?limit=50&offset=10")
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_Clamping(t *testing.T) {
	tests := []struct {
		target     string
		wantLimit  int
		wantOffset int
	}{
		{"/?limit=1000", MaxLimit, 0},
		{"/?limit=-5&offset=-3", DefaultLimit, 0},
		{"/?limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := paramsFor(t, tt.target)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%s: expected (%d, %d), got (%d, %d)", tt.target, tt.wantLimit, tt.wantOffset, p.Limit, p.Offset)
		}
	}
}

func TestPage(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	r := Page(items, Params{Limit: 2, Offset: 0})
	if len(r.Data) != 2 || r.Data[0] != "a" || !r.HasMore || r.Total != 5 {
		t.Errorf("unexpected first page: %+v", r)
	}

	r = Page(items, Params{Limit: 2, Offset: 4})
	if len(r.Data) != 1 || r.Data[0] != "e" || r.HasMore {
		t.Errorf("unexpected last page: %+v", r)
	}

	r = Page(items, Params{Limit: 2, Offset: 10})
	if r.Data == nil || len(r.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %#v", r.Data)
	}

	r = Page([]string(nil), Params{Limit: 20})
	if r.Data == nil || r.Total != 0 {
		t.Errorf("expected empty page, got %+v", r)
	}
}

func TestPage_CopiesData(t *testing.T) {
	items := []int{1, 2, 3}
	r := Page(items, Params{Limit: 3})
	r.Data[0] = 99
	if items[0] != 1 {
		t.Error("page shares its backing array with the input")
	}
}

func TestLinks(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	links := p.Links("/api/v1/records", 25)
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	if links[0].URL != "/api/v1/records?offset=10&limit=10" {
		t.Errorf("unexpected self link %s", links[0].URL)
	}
	if links[1].Relation != "next" || links[1].URL != "/api/v1/records?offset=20&limit=10" {
		t.Errorf("unexpected next link %+v", links[1])
	}
	if links[2].Relation != "previous" || links[2].URL != "/api/v1/records?offset=0&limit=10" {
		t.Errorf("unexpected previous link %+v", links[2])
	}

	only := Params{Limit: 10}.Links("/x", 5)
	if len(only) != 1 {
		t.Errorf("expected only self link, got %d", len(only))
	}
}

func TestWithLinks(t *testing.T) {
	r := Page([]int{1, 2, 3}, Params{Limit: 2}).WithLinks("/n")
	if len(r.Links) != 2 || r.Links[1].Relation != "next" {
		t.Errorf("unexpected links: %+v", r.Links)
	}
}
