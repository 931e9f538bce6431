package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(newContext("/?limit=50&offset=10"))

	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(newContext("/?limit=500"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := FromContext(newContext("/?offset=-5"))
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 5, 2, 0)
	if resp.Total != 5 {
		t.Errorf("expected total 5, got %d", resp.Total)
	}
	if !resp.HasMore {
		t.Error("expected has_more to be true")
	}

	resp = NewResponse([]string{"e"}, 5, 2, 4)
	if resp.HasMore {
		t.Error("expected has_more to be false on last page")
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name string
		p    Params
		want []int
	}{
		{"first page", Params{Limit: 2, Offset: 0}, []int{1, 2}},
		{"middle page", Params{Limit: 2, Offset: 2}, []int{3, 4}},
		{"short last page", Params{Limit: 2, Offset: 4}, []int{5}},
		{"past the end", Params{Limit: 2, Offset: 10}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slice(items, tt.p)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestParams_HasNext(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	if !p.HasNext(25) {
		t.Error("expected HasNext true for 25 results")
	}
	if p.HasNext(10) {
		t.Error("expected HasNext false for exactly one page")
	}
}

func TestParams_HasPrevious(t *testing.T) {
	if (Params{Limit: 10}).HasPrevious() {
		t.Error("expected HasPrevious false at offset 0")
	}
	if !(Params{Limit: 10, Offset: 10}).HasPrevious() {
		t.Error("expected HasPrevious true at offset 10")
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	if got := (Params{Limit: 10, Offset: 5}).PreviousOffset(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := (Params{Limit: 10, Offset: 30}).PreviousOffset(); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestParams_Links(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	links := p.Links("/api/v1/records", 35)

	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	want := map[string]string{
		"self":     "/api/v1/records?offset=10&limit=10",
		"next":     "/api/v1/records?offset=20&limit=10",
		"previous": "/api/v1/records?offset=0&limit=10",
	}
	for _, l := range links {
		if want[l.Relation] != l.URL {
			t.Errorf("%s: expected %s, got %s", l.Relation, want[l.Relation], l.URL)
		}
	}
}

func TestParams_Links_SinglePage(t *testing.T) {
	links := Params{Limit: 20}.Links("/api/v1/records", 3)
	if len(links) != 1 || links[0].Relation != "self" {
		t.Fatalf("expected only self link, got %+v", links)
	}
}
